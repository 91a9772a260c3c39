package lfs

import "strings"

// routeKind tags the logical operation a URL path maps to. Which HTTP methods
// are acceptable for each kind is the handlers' business, not the classifier's.
type routeKind int

const (
	// routeWrongPath covers every path outside the protocol's URL grammar,
	// including object paths whose OID segment is malformed.
	routeWrongPath routeKind = iota

	// routeBatch is /objects/batch.
	routeBatch

	// routeObject is /objects/{oid}: metadata (GET/HEAD), verify (POST) and
	// upload (PUT) share this path.
	routeObject

	// routeDownload is /data/objects/{oid}.
	routeDownload

	// routeLegacy is the bare /objects path of the legacy single-object API.
	routeLegacy
)

// route is the result of classifying a request path. OID is set only for the
// object and download kinds.
type route struct {
	kind routeKind
	oid  string
}

// classify maps a URL path onto its logical operation. It is total and pure:
// no store access, no method checks, every input yields a route.
func classify(path string) route {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return route{kind: routeWrongPath}
	}

	switch {
	case rest == "objects":
		return route{kind: routeLegacy}

	case rest == "objects/batch":
		return route{kind: routeBatch}

	case strings.HasPrefix(rest, "objects/"):
		oid := rest[len("objects/"):]
		if !IsValidOID(oid) {
			return route{kind: routeWrongPath}
		}
		return route{kind: routeObject, oid: oid}

	case strings.HasPrefix(rest, "data/objects/"):
		oid := rest[len("data/objects/"):]
		if !IsValidOID(oid) {
			return route{kind: routeWrongPath}
		}
		return route{kind: routeDownload, oid: oid}
	}

	return route{kind: routeWrongPath}
}
