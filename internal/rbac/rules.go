package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"pool:count",
		"revision:create",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"quiz:view",
	},
	"teacher": {
		"pool:count",
		"quiz:view",
		"quiz:create",
		"question:create",
		"question:list",
		"question:toggle",
		"attempt:view-all",
	},
	"admin": {
		"*", // everything
	},
}
