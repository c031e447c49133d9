package middleware

import (
	"fmt"
	"net/http"

	"backoffice/internal/authz"

	"github.com/gin-gonic/gin"
)

// Access is the gate a route sits behind
type Access int

const (
	// Public routes never look at credentials
	Public Access = iota
	// Optional routes bind a principal when a valid token is presented
	Optional
	// Authenticated routes need any active principal
	Authenticated
	// Protected routes need every code in Route.Requires
	Protected
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Optional:
		return "optional"
	case Authenticated:
		return "authenticated"
	case Protected:
		return "protected"
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// Route declares an endpoint together with the capability it needs
type Route struct {
	Method   string
	Path     string
	Access   Access
	Requires authz.Requirement
	Handle   gin.HandlerFunc
}

// Get, Post, Put and Delete build protected routes requiring codes
func Get(path string, h gin.HandlerFunc, codes ...string) Route {
	return protected(http.MethodGet, path, h, codes)
}

func Post(path string, h gin.HandlerFunc, codes ...string) Route {
	return protected(http.MethodPost, path, h, codes)
}

func Put(path string, h gin.HandlerFunc, codes ...string) Route {
	return protected(http.MethodPut, path, h, codes)
}

func Delete(path string, h gin.HandlerFunc, codes ...string) Route {
	return protected(http.MethodDelete, path, h, codes)
}

func protected(method, path string, h gin.HandlerFunc, codes []string) Route {
	return Route{Method: method, Path: path, Access: Protected, Requires: authz.Require(codes...), Handle: h}
}

// WithAccess returns a copy of r behind a different gate
func (r Route) WithAccess(a Access) Route {
	r.Access = a
	return r
}

// Mount registers routes on group, each behind the gate its declaration asks for.
// A Protected route with an empty requirement is a programming error and panics at startup.
func (g *Gate) Mount(group gin.IRoutes, routes ...Route) {
	for _, r := range routes {
		chain := []gin.HandlerFunc{}
		switch r.Access {
		case Public:
		case Optional:
			chain = append(chain, g.OptionalAuth())
		case Authenticated:
			chain = append(chain, g.RequireAuth())
		case Protected:
			if r.Requires.IsEmpty() {
				panic(fmt.Sprintf("route %s %s is protected but declares no permission", r.Method, r.Path))
			}
			chain = append(chain, g.RequirePermission(r.Requires))
		default:
			panic(fmt.Sprintf("route %s %s has unknown access %s", r.Method, r.Path, r.Access))
		}
		chain = append(chain, r.Handle)
		group.Handle(r.Method, r.Path, chain...)
	}
}
