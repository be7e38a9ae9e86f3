package bridge

import (
	"regexp"

	"snowbridge/internal/domain"
)

// Kind identifies which resource family a path belongs to.
type Kind string

const (
	KindDatabase        Kind = "databases"
	KindSchema          Kind = "schemas"
	KindTable           Kind = "tables"
	KindTask            Kind = "tasks"
	KindWarehouse       Kind = "warehouses"
	KindComputePool     Kind = "compute-pools"
	KindService         Kind = "services"
	KindImageRepository Kind = "image-repositories"
)

type route struct {
	kind    Kind
	pattern *regexp.Regexp
}

// routes is ordered most-specific first: resources nested under a schema
// before schemas themselves, schemas before databases. Matching stops at
// the first hit, so the order is load-bearing.
var routes = []route{
	{KindTask, regexp.MustCompile(`^/api/v2/databases/[^/]+/schemas/[^/]+/tasks(/[^/]+)*$`)},
	{KindService, regexp.MustCompile(`^/api/v2/databases/[^/]+/schemas/[^/]+/services(/[^/]+)*$`)},
	{KindImageRepository, regexp.MustCompile(`^/api/v2/databases/[^/]+/schemas/[^/]+/image-repositories(/[^/]+)*$`)},
	{KindComputePool, regexp.MustCompile(`^/api/v2/compute-pools(/[^/]+)*$`)},
	{KindTable, regexp.MustCompile(`^/api/v2/databases/[^/]+/schemas/[^/]+/tables(/[^/]+)*$`)},
	{KindWarehouse, regexp.MustCompile(`^/api/v2/warehouses(/[^/]+)*$`)},
	{KindSchema, regexp.MustCompile(`^/api/v2/databases/[^/]+/schemas(/[^/]+)*$`)},
	{KindDatabase, regexp.MustCompile(`^/api/v2/databases(/[^/]+)*$`)},
}

// Resolve matches an action-stripped path against the routing table.
func Resolve(path string) (Kind, error) {
	for _, rt := range routes {
		if rt.pattern.MatchString(path) {
			return rt.kind, nil
		}
	}
	return "", domain.ErrBadRequest("unsupported resource path: %s", path)
}
