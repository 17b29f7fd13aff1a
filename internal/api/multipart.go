package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/domain"
)

// Multipart field names understood by the topic endpoints.
const (
	fieldName             = "name"
	fieldPersonality      = "personality"
	fieldUseRAG           = "use_rag"
	fieldToolName         = "tool_name"
	fieldToolDescription  = "tool_description"
	fieldExistingDocPaths = "existing_doc_paths"
	fieldFiles            = "files"
)

// encodeTopicForm renders a topic create or update as one multipart body.
// existing_doc_paths is repeated once per surviving path and only written
// for updates.
func encodeTopicForm(fields domain.TopicFields, existing []string, withExisting bool, files []domain.Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	values := [][2]string{
		{fieldName, fields.Name},
		{fieldPersonality, fields.Personality},
		{fieldUseRAG, strconv.FormatBool(fields.UseRAG)},
	}
	if fields.ToolName != "" {
		values = append(values, [2]string{fieldToolName, fields.ToolName})
	}
	if fields.ToolDescription != "" {
		values = append(values, [2]string{fieldToolDescription, fields.ToolDescription})
	}
	if withExisting {
		for _, path := range existing {
			values = append(values, [2]string{fieldExistingDocPaths, path})
		}
	}
	for _, kv := range values {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(fieldFiles, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
