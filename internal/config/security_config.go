package config

import "strings"

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityRead                         // Any valid access token
	SecurityOperate                      // Access token with an operator or admin role
)

// Roles that may run commands that change equipment or contracts.
var OperatorRoles = []string{"operator", "admin"}

const lifecycleService = "/fleet.v1.LifecycleService/"

// EndpointSecurityConfig maps gRPC methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	lifecycleService + "HealthCheck": SecurityPublic,

	lifecycleService + "GetEquipment":         SecurityRead,
	lifecycleService + "GetHistory":           SecurityRead,
	lifecycleService + "GetMaintenanceStatus": SecurityRead,

	lifecycleService + "RegisterEquipment": SecurityOperate,
	lifecycleService + "Transition":        SecurityOperate,
	lifecycleService + "BindContract":      SecurityOperate,
	lifecycleService + "RenewContract":     SecurityOperate,
	lifecycleService + "TerminateContract": SecurityOperate,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityOperate
}

// HTTPSecurityLevel applies the same split to REST: reads need a token,
// everything else needs an operator.
func HTTPSecurityLevel(method, path string) SecurityLevel {
	if path == "/health" || path == "/metrics" {
		return SecurityPublic
	}
	if strings.EqualFold(method, "GET") || strings.EqualFold(method, "HEAD") {
		return SecurityRead
	}
	return SecurityOperate
}

// HasOperatorRole reports whether any of roles grants SecurityOperate.
func HasOperatorRole(roles []string) bool {
	for _, r := range roles {
		for _, allowed := range OperatorRoles {
			if strings.EqualFold(r, allowed) {
				return true
			}
		}
	}
	return false
}
