package authz

const (
	RoleAdmin     = "admin"
	RoleEditor    = "editor"
	RoleViewer    = "viewer"
	RoleAnonymous = "anonymous"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

const DomainGlobal = "global"

const (
	ObjectAssets  = "assets.assets"
	ObjectTypes   = "assets.types"
	ObjectImports = "assets.imports"
	ObjectExports = "assets.exports"
	ObjectBackups = "ops.backups"
	ObjectMetrics = "ops.metrics"
)
