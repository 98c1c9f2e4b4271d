// package nav holds the fixed route table and decides which route is active for a path.
package nav

import "strings"

// Route is a named destination.
type Route struct {
	Name string
	Path string
	Icon string
}

// Item is a route paired with its active flag for one render.
type Item struct {
	Route
	Active bool
}

var (
	Review   = Route{Name: "Review", Path: "/review", Icon: "☰"}
	Upload   = Route{Name: "Upload", Path: "/upload", Icon: "⇪"}
	Export   = Route{Name: "Export", Path: "/export", Icon: "⇩"}
	Settings = Route{Name: "Settings", Path: "/settings", Icon: "⚙"}
)

// Routes returns the route table in display order.
func Routes() []Route {
	return []Route{Review, Upload, Export, Settings}
}

// Active returns the route matching path, either exactly or as a parent of a nested path.
func Active(path string) (Route, bool) {
	path = normalize(path)
	for _, r := range Routes() {
		if path == r.Path || strings.HasPrefix(path, r.Path+"/") {
			return r, true
		}
	}
	return Route{}, false
}

// Items returns the route table with the active route flagged.
func Items(path string) []Item {
	active, ok := Active(path)
	routes := Routes()
	items := make([]Item, len(routes))
	for i, r := range routes {
		items[i] = Item{Route: r, Active: ok && r.Path == active.Path}
	}
	return items
}

// Index returns the position of the route with the given path, or -1.
func Index(path string) int {
	for i, r := range Routes() {
		if r.Path == path {
			return i
		}
	}
	return -1
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
