package httpadapter

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiSpec []byte

var (
	specRouterOnce sync.Once
	specRouter     routers.Router
	specRouterErr  error
)

func loadSpecRouter() (routers.Router, error) {
	specRouterOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openapiSpec)
		if err != nil {
			specRouterErr = fmt.Errorf("load embedded openapi spec: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			specRouterErr = fmt.Errorf("validate embedded openapi spec: %w", err)
			return
		}
		specRouter, specRouterErr = legacy.NewRouter(doc)
	})
	return specRouter, specRouterErr
}

// validationMiddleware checks incoming requests against the embedded OpenAPI
// contract. Paths outside the contract (healthz, metrics) pass through.
func validationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router, err := loadSpecRouter()
		if err != nil {
			// The contract is a compiled-in asset; failing to load it is a
			// build defect, not a caller problem.
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
