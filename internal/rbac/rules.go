package rbac

// RolePermissions is the default policy. Participants never authenticate:
// the trial ID they receive is their capability.
var RolePermissions = map[string][]string{
	"observer": {
		"results:view",
		"presets:view",
	},
	"experimenter": {
		"trial:create",
		"trial:view",
		"trial:delete",
		"results:*",
		"presets:view",
	},
	"admin": {
		"*", // everything
	},
}
