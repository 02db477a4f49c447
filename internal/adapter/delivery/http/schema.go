package http

import (
	"time"

	"github.com/vadimbarashkov/shortlinks/internal/entity"
)

// createMappingRequest is the body of POST /api/url-mappings.
// An empty slug asks the service to generate one.
type createMappingRequest struct {
	Slug      string `json:"slug" validate:"omitempty,slug"`
	TargetURL string `json:"targetURL" validate:"required,targeturl"`
}

// updateMappingRequest is the body of PUT /api/url-mappings/{slug}.
// Omitted fields are left unchanged.
type updateMappingRequest struct {
	TargetURL *string `json:"targetURL" validate:"omitnil,targeturl"`
	Disabled  *bool   `json:"disabled"`
}

func (req updateMappingRequest) toEntity() entity.URLMappingUpdate {
	return entity.URLMappingUpdate{
		TargetURL: req.TargetURL,
		Disabled:  req.Disabled,
	}
}

// urlMappingResponse is the JSON representation of a url mapping.
type urlMappingResponse struct {
	ID            int64      `json:"id"`
	Slug          string     `json:"slug"`
	TargetURL     string     `json:"targetURL"`
	Visits        int64      `json:"visits"`
	LastVisitedAt *time.Time `json:"lastVisitedAt"`
	Disabled      bool       `json:"disabled"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toURLMappingResponse(mapping *entity.URLMapping) urlMappingResponse {
	return urlMappingResponse{
		ID:            mapping.ID,
		Slug:          mapping.Slug,
		TargetURL:     mapping.TargetURL,
		Visits:        mapping.Visits,
		LastVisitedAt: mapping.LastVisitedAt,
		Disabled:      mapping.Disabled,
		CreatedAt:     mapping.CreatedAt,
		UpdatedAt:     mapping.UpdatedAt,
	}
}

func toURLMappingResponses(mappings []*entity.URLMapping) []urlMappingResponse {
	resp := make([]urlMappingResponse, 0, len(mappings))
	for _, mapping := range mappings {
		resp = append(resp, toURLMappingResponse(mapping))
	}

	return resp
}
