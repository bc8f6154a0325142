package handlers

import (
	"net/http"

	"ferryhq/ferry/pkg/proxy"
	"ferryhq/ferry/pkg/proxy/types"
)

// modelCreated is the creation timestamp advertised for the model.
const modelCreated = 1626777600

// NewModelList returns the single-entry model list for model.
func NewModelList(model string) *types.ModelList {
	return &types.ModelList{
		Object: types.ObjectList,
		Data: []types.Model{{
			ID:      model,
			Object:  types.ObjectModel,
			Created: modelCreated,
			OwnedBy: "openai",
			Permission: []types.ModelPermission{{
				ID:                "modelperm-001",
				Object:            types.ObjectModelPermission,
				Created:           modelCreated,
				AllowCreateEngine: true,
				AllowSampling:     true,
				AllowLogprobs:     true,
				AllowView:         true,
				Organization:      "*",
			}},
			Root: model,
		}},
	}
}

// ModelsHandler serves GET /v1/models.
func ModelsHandler(model string) http.HandlerFunc {
	list := NewModelList(model)
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = proxy.WriteJSONResponse(w, http.StatusOK, list)
	}
}

// NotFoundHandler answers unknown paths with the error envelope.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, types.ErrorTypeNotFound, "Unknown path "+r.URL.Path+".")
	}
}

// MethodNotAllowedHandler answers a known path requested with the wrong
// method. allow is sent in the Allow header.
func MethodNotAllowedHandler(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		errorResponse(w, types.ErrorTypeMethodNotAllowed, "Method "+r.Method+" is not allowed on "+r.URL.Path+".")
	}
}
