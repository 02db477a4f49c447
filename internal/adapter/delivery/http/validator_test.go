package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadimbarashkov/shortlinks/pkg/response"
)

func TestNewValidator(t *testing.T) {
	validate := newValidator()

	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name       string
		req        any
		wantFields []string
	}{
		{
			name: "create with slug",
			req:  createMappingRequest{Slug: "blog", TargetURL: "https://example.com/blog"},
		},
		{
			name: "create without slug",
			req:  createMappingRequest{TargetURL: "https://example.com/blog"},
		},
		{
			name:       "create with invalid slug and missing url",
			req:        createMappingRequest{Slug: "my blog"},
			wantFields: []string{"slug", "targetURL"},
		},
		{
			name:       "create with relative url",
			req:        createMappingRequest{Slug: "blog", TargetURL: "/blog"},
			wantFields: []string{"targetURL"},
		},
		{
			name: "update without fields",
			req:  updateMappingRequest{},
		},
		{
			name: "update with valid url",
			req:  updateMappingRequest{TargetURL: strPtr("https://example.com/new-blog")},
		},
		{
			name:       "update with empty url",
			req:        updateMappingRequest{TargetURL: strPtr("")},
			wantFields: []string{"targetURL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.req)

			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)

			var gotFields []string
			for _, e := range response.ValidationErrorResponse(err).Errors {
				gotFields = append(gotFields, e.Field)
			}
			assert.Equal(t, tt.wantFields, gotFields)
		})
	}
}
