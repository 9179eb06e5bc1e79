package chat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/berea-ai/berea/generator"
	toolhandler "github.com/berea-ai/berea/tool_handler"
)

type Catalog struct {
	tools map[string]toolhandler.ToolHandler
	specs map[string]toolhandler.ToolSpec
	order []string
	mtx   sync.RWMutex
}

func (c *Catalog) Register(th toolhandler.ToolHandler) error {
	if th == nil {
		return fmt.Errorf("tool is nil")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	spec := th.Spec()
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if len(key) == 0 {
		return fmt.Errorf("tool name is required")
	}

	if _, ok := c.tools[key]; ok {
		return fmt.Errorf("tool %s already registered", key)
	}

	c.tools[key] = th
	c.specs[key] = spec
	c.order = append(c.order, key)

	return nil
}

func (c *Catalog) Get(name string) (toolhandler.ToolHandler, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	th, ok := c.tools[strings.ToLower(strings.TrimSpace(name))]
	return th, ok
}

func (c *Catalog) Spec(name string) (toolhandler.ToolSpec, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	spec, ok := c.specs[strings.ToLower(strings.TrimSpace(name))]
	return spec, ok
}

func (c *Catalog) ListSpecs() []toolhandler.ToolSpec {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	specs := make([]toolhandler.ToolSpec, 0, len(c.specs))
	for _, key := range c.order {
		specs = append(specs, c.specs[key])
	}

	return specs
}

// GeneratorTools converts the registered specs into the generator's tool
// shape.
func (c *Catalog) GeneratorTools() []generator.Tool {
	specs := c.ListSpecs()

	tools := make([]generator.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, generator.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}

	return tools
}

func NewCatalog() *Catalog {
	return &Catalog{
		tools: map[string]toolhandler.ToolHandler{},
		specs: map[string]toolhandler.ToolSpec{},
	}
}
