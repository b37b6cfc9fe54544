package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission = string

const (
	RolAdmin       = "admin"
	RolInstitucion = "institucion"

	PermUsuariosManage    = "usuarios.manage"
	PermMetricasGlobal    = "metricas.global"
	PermMetricasPropias   = "metricas.propias"
	PermIncidenciasCrear  = "incidencias.crear"
	PermIncidenciasManage = "incidencias.manage"
	PermEvidenciasVer     = "evidencias.ver"
)

const policyModel = `[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Policy answers "may any of these roles perform perm". The rules are
// fixed at startup; there is no per-install role editing.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	rules := [][2]string{
		{RolAdmin, PermUsuariosManage},
		{RolAdmin, PermMetricasGlobal},
		{RolAdmin, PermMetricasPropias},
		{RolAdmin, PermIncidenciasCrear},
		{RolAdmin, PermIncidenciasManage},
		{RolAdmin, PermEvidenciasVer},
		{RolInstitucion, PermMetricasPropias},
		{RolInstitucion, PermIncidenciasCrear},
	}
	for _, rule := range rules {
		if _, err := e.AddPolicy(rule[0], rule[1]); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(roles []string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	for _, role := range roles {
		ok, err := p.enforcer.Enforce(role, string(perm))
		if err == nil && ok {
			return true
		}
	}
	return false
}
