package api

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
)

//go:embed templates/feedback.html
var feedbackTemplate string

// TemplateRenderer renders the feedback page with pongo2.
type TemplateRenderer struct {
	page *pongo2.Template
}

// NewTemplateRenderer compiles the embedded feedback page.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	page, err := pongo2.FromString(feedbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile feedback template: %w", err)
	}
	return &TemplateRenderer{page: page}, nil
}

// HTML writes the page with the given status code.
func (r *TemplateRenderer) HTML(c *gin.Context, code int, data pongo2.Context) {
	out, err := r.page.Execute(data)
	if err != nil {
		c.String(http.StatusInternalServerError, "Template execution error: %v", err)
		return
	}
	c.Data(code, "text/html; charset=utf-8", []byte(out))
}
