package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/recipebox/internal/export"
)

const maxPDFSize = 10 << 20 // 10 MB

type pdfResult struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Base64   string `json:"base64"`
}

func (s *Server) exportRecipePDF(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := recipeIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, ok := s.store.Find(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, rec, s.store.Ingredient, s.pdf); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if buf.Len() > maxPDFSize {
		return mcp.NewToolResultError(fmt.Sprintf("pdf too large: %d bytes (max %d)", buf.Len(), maxPDFSize)), nil
	}

	return jsonResult(pdfResult{
		Filename: export.FileName(rec),
		Size:     buf.Len(),
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}), nil
}
