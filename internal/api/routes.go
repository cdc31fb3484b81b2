package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/fooddex/fooddex/internal/engine"
	"github.com/fooddex/fooddex/pkg/types"
)

// ErrorResponse is the standardized JSON error body
type ErrorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// DeletedResponse reports a bulk-delete count
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// Routes creates the router for the whole engine API surface
func Routes(eng *engine.Engine) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Recoverer,       // Recover from panics without crashing the server
		middleware.RedirectSlashes, // Redirect slashes to no slash URL versions
		render.SetContentType(render.ContentTypeJSON), // Set content-type headers to application/json
		middleware.NoCache, // Prevent clients from caching the results
	)

	router.Get("/foods", searchFoods(eng))
	router.Get("/foods/{id}", getFoodDetails(eng))
	router.Get("/barcode/{code}", lookupByBarcode(eng))
	router.Post("/bundles/preload", preloadEssentials(eng))
	router.Delete("/cache/viewed", clearViewed(eng))
	router.Delete("/cache/expired", clearExpired(eng))
	router.Get("/cache/stats", cacheStats(eng))
	return router
}

// searchFoods handles GET /foods?search=&limit=&include_cache=
func searchFoods(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("search")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		excludeCache := r.URL.Query().Get("include_cache") == "false"

		resp, err := eng.SearchFoods(r.Context(), query, engine.SearchOptions{
			Limit:        limit,
			ExcludeCache: excludeCache,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, resp)
	}
}

// getFoodDetails handles GET /foods/{id}?cache_reason=
func getFoodDetails(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeErrorWithCode(w, r, http.StatusBadRequest, "invalid food id", "")
			return
		}

		reason, ok := parseReason(r.URL.Query().Get("cache_reason"))
		if !ok {
			writeErrorWithCode(w, r, http.StatusBadRequest, "invalid cache_reason", "")
			return
		}

		details, err := eng.GetFoodDetails(r.Context(), types.FoodID(id), reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if details == nil {
			writeErrorWithCode(w, r, http.StatusNotFound, "food not found", "")
			return
		}
		render.JSON(w, r, details)
	}
}

// lookupByBarcode handles GET /barcode/{code}
func lookupByBarcode(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := eng.LookupByBarcode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if details == nil {
			// A miss routes the client to its create-custom-food flow
			writeErrorWithCode(w, r, http.StatusNotFound, "no food matches barcode", "")
			return
		}
		render.JSON(w, r, details)
	}
}

// preloadEssentials handles POST /bundles/preload
func preloadEssentials(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.PreloadEssentials(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// clearViewed handles DELETE /cache/viewed
func clearViewed(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := eng.ClearViewed(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, DeletedResponse{Deleted: deleted})
	}
}

// clearExpired handles DELETE /cache/expired
func clearExpired(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := eng.ClearExpired(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, DeletedResponse{Deleted: deleted})
	}
}

// StatsResponse augments cache stats with bundle introspection for the
// client's download-manager screen
type StatsResponse struct {
	TotalCount     int      `json:"totalCount"`
	LoggedCount    int      `json:"loggedCount"`
	ViewedCount    int      `json:"viewedCount"`
	EstimatedBytes int64    `json:"estimatedBytes"`
	LoadedBundles  []string `json:"loadedBundles"`
}

// cacheStats handles GET /cache/stats
func cacheStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := eng.CacheStats(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, StatsResponse{
			TotalCount:     stats.TotalCount,
			LoggedCount:    stats.LoggedCount,
			ViewedCount:    stats.ViewedCount,
			EstimatedBytes: stats.EstimatedBytes,
			LoadedBundles:  eng.LoadedBundles(),
		})
	}
}

// parseReason maps the cache_reason query param onto a retention reason.
// Empty means "resolve without caching".
func parseReason(raw string) (types.CacheReason, bool) {
	switch raw {
	case "":
		return "", true
	case string(types.ReasonViewed):
		return types.ReasonViewed, true
	case string(types.ReasonLogged):
		return types.ReasonLogged, true
	default:
		return "", false
	}
}

// writeError maps an engine error onto a status code. Bundle-load failures
// are retryable and surface as 502 so the client can show a retry
// affordance; anything else is a plain 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if le, ok := types.AsLoadError(err); ok {
		writeErrorWithCode(w, r, http.StatusBadGateway, "search temporarily unavailable", string(le.Reason))
		return
	}
	var se *types.StoreError
	if errors.As(err, &se) {
		// Cache failures are swallowed inside the engine; reaching here
		// means a cache-maintenance endpoint was asked to do the work.
		writeErrorWithCode(w, r, http.StatusServiceUnavailable, "cache unavailable", string(se.Reason))
		return
	}
	writeErrorWithCode(w, r, http.StatusInternalServerError, err.Error(), "")
}

func writeErrorWithCode(w http.ResponseWriter, r *http.Request, code int, message, reason string) {
	render.Status(r, code)
	render.JSON(w, r, ErrorResponse{Message: message, Reason: reason})
}
