package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ternarybob/engel/internal/handlers"
)

// RouteHandler handles one method of a route
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod dispatches on r.Method. Unsupported methods get a JSON 405
// listing the allowed ones.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	if handler, ok := routes[r.Method]; ok {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(routes))
	for method := range routes {
		allowed = append(allowed, method)
	}
	slices.Sort(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// RouteCRUD routes a resource by method; nil handlers are not allowed
func RouteCRUD(w http.ResponseWriter, r *http.Request, get, post, put, delete RouteHandler) {
	routes := make(MethodRouter, 4)
	for method, handler := range map[string]RouteHandler{
		http.MethodGet:    get,
		http.MethodPost:   post,
		http.MethodPut:    put,
		http.MethodDelete: delete,
	} {
		if handler != nil {
			routes[method] = handler
		}
	}
	RouteByMethod(w, r, routes)
}
