package middleware

import (
	"net/http"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/models"
)

// Resources and actions checked against the policy table
const (
	ResourceUsers      = "users"
	ResourceRooms      = "rooms"
	ResourceStudents   = "students"
	ResourceComplaints = "complaints"
	ResourceAttendance = "attendance"
	ResourceAny        = "*"

	ActionList      = "list"
	ActionRead      = "read"
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionResolve   = "resolve"
	ActionMark      = "mark"
	ActionReconcile = "reconcile"
	// ActionReadAny grants access to records owned by other users
	ActionReadAny = "read-any"
)

// groups every role inherits from
const (
	groupStaff  = "staff"
	groupMember = "member"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

var policyGroups = [][]string{
	{models.RoleAdmin, groupStaff},
	{models.RoleWarden, groupStaff},
	{groupStaff, groupMember},
	{models.RoleStudent, groupMember},
}

var policyRules = [][]string{
	{groupStaff, ResourceUsers, ActionList},
	{groupStaff, ResourceUsers, ActionUpdate},
	{groupStaff, ResourceUsers, ActionDelete},
	{groupStaff, ResourceRooms, ActionCreate},
	{groupStaff, ResourceRooms, ActionUpdate},
	{groupStaff, ResourceRooms, ActionDelete},
	{models.RoleAdmin, ResourceRooms, ActionReconcile},
	{groupStaff, ResourceStudents, ActionCreate},
	{groupStaff, ResourceStudents, ActionList},
	{groupStaff, ResourceStudents, ActionUpdate},
	{groupStaff, ResourceStudents, ActionDelete},
	{groupStaff, ResourceComplaints, ActionResolve},
	{groupStaff, ResourceAttendance, ActionMark},
	{groupStaff, ResourceAny, ActionReadAny},

	// ownership is checked by the handler for member reads
	{groupMember, ResourceUsers, ActionRead},
	{groupMember, ResourceRooms, ActionList},
	{groupMember, ResourceRooms, ActionRead},
	{groupMember, ResourceStudents, ActionRead},
	{groupMember, ResourceComplaints, ActionCreate},
	{groupMember, ResourceComplaints, ActionList},
	{groupMember, ResourceComplaints, ActionRead},
	{groupMember, ResourceComplaints, ActionUpdate},
	{groupMember, ResourceAttendance, ActionRead},
}

var (
	enforcer     *casbin.Enforcer
	enforcerOnce sync.Once
	enforcerErr  error
)

// NewPolicyEnforcer builds a Casbin enforcer holding the role permission table
func NewPolicyEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicies(policyGroups); err != nil {
		return nil, err
	}
	if _, err := e.AddPolicies(policyRules); err != nil {
		return nil, err
	}
	return e, nil
}

// GetEnforcer returns the process-wide policy enforcer
func GetEnforcer() (*casbin.Enforcer, error) {
	enforcerOnce.Do(func() {
		enforcer, enforcerErr = NewPolicyEnforcer()
		if enforcerErr == nil {
			policies, _ := enforcer.GetPolicy()
			config.Debugf("Policy enforcer ready with %d rules", len(policies))
		}
	})
	return enforcer, enforcerErr
}

// Allowed reports whether role may perform action on resource
func Allowed(role, resource, action string) bool {
	e, err := GetEnforcer()
	if err != nil {
		config.Errorf("Policy enforcer unavailable: %v", err)
		return false
	}
	ok, err := e.Enforce(role, resource, action)
	if err != nil {
		config.Errorf("Policy check failed for %s %s %s: %v", role, resource, action, err)
		return false
	}
	return ok
}

// Can reports whether the authenticated user may perform action on resource
func Can(c *gin.Context, resource, action string) bool {
	return Allowed(GetRole(c), resource, action)
}

// CanReadAny reports whether the authenticated user bypasses ownership checks
func CanReadAny(c *gin.Context) bool {
	return Can(c, ResourceAny, ActionReadAny)
}

// RequirePermission rejects requests whose role is not granted action on
// resource. It must run after EnsureValidToken.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !Can(c, resource, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
