package graph

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
)

// request is the standard GraphQL-over-HTTP POST body.
type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves queries and mutations on POST /graphql. Every request gets
// its own ExecutionContext; an invalid credential degrades to anonymous and
// the operation decides whether that is acceptable.
type Handler struct {
	schema  graphql.Schema
	builder *ContextBuilder
}

// NewHandler creates the HTTP GraphQL handler.
func NewHandler(schema graphql.Schema, builder *ContextBuilder) *Handler {
	return &Handler{schema: schema, builder: builder}
}

// Serve is the gin handler for POST /graphql.
func (h *Handler) Serve(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": []gin.H{{"message": "invalid request body"}},
		})
		return
	}

	ec := h.builder.Build(c.Request.Context(), c.GetHeader("Authorization"))
	ctx := WithExecutionContext(c.Request.Context(), ec)

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	c.JSON(http.StatusOK, result)
}
