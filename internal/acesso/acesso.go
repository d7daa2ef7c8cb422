// Package acesso maps user roles to the dashboard pages they may open and
// the page they land on after login.
package acesso

import (
	"fmt"
	"slices"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleCarrier    Role = "carrier"
	RoleManagement Role = "management"
	RoleNew        Role = "new"
)

// ParseRole rejects anything outside the five known roles.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := tabela[r]
	return r, ok
}

type Pagina string

const (
	PaginaDashboard  Pagina = "dashboard"
	PaginaNotas      Pagina = "notas"
	PaginaUpload     Pagina = "upload"
	PaginaCanhotos   Pagina = "canhotos"
	PaginaRelatorios Pagina = "relatorios"
	PaginaClientes   Pagina = "clientes"
	PaginaFretistas  Pagina = "fretistas"
	PaginaUsuarios   Pagina = "usuarios"
	PaginaAguardando Pagina = "aguardando"
)

// registro is every page the frontend knows how to render.
var registro = []Pagina{
	PaginaDashboard, PaginaNotas, PaginaUpload, PaginaCanhotos, PaginaRelatorios,
	PaginaClientes, PaginaFretistas, PaginaUsuarios, PaginaAguardando,
}

// Rota is the frontend path of a page.
func (p Pagina) Rota() string { return "/" + string(p) }

type perfil struct {
	landing Pagina
	paginas []Pagina
}

var tabela = map[Role]perfil{
	RoleAdmin: {
		landing: PaginaDashboard,
		paginas: registro,
	},
	RoleStaff: {
		landing: PaginaDashboard,
		paginas: []Pagina{PaginaDashboard, PaginaNotas, PaginaUpload, PaginaCanhotos, PaginaRelatorios, PaginaClientes, PaginaFretistas},
	},
	RoleCarrier: {
		landing: PaginaCanhotos,
		paginas: []Pagina{PaginaCanhotos, PaginaUpload},
	},
	RoleManagement: {
		landing: PaginaDashboard,
		paginas: []Pagina{PaginaDashboard, PaginaNotas, PaginaRelatorios},
	},
	RoleNew: {
		landing: PaginaAguardando,
		paginas: []Pagina{PaginaAguardando},
	},
}

// perfilDe falls back to the waiting-room profile for unknown roles.
func perfilDe(r Role) perfil {
	if p, ok := tabela[r]; ok {
		return p
	}
	return tabela[RoleNew]
}

// Permite reports whether role may open page.
func Permite(r Role, p Pagina) bool {
	return slices.Contains(perfilDe(r).paginas, p)
}

// Landing is the route a freshly logged-in user is sent to.
func Landing(r Role) string {
	return perfilDe(r).landing.Rota()
}

// Paginas lists the page names a role may open, in registry order.
func Paginas(r Role) []string {
	pp := perfilDe(r).paginas
	out := make([]string, 0, len(pp))
	for _, p := range registro {
		if slices.Contains(pp, p) {
			out = append(out, string(p))
		}
	}
	return out
}

// Validar checks the table against the page registry. The server refuses to
// start on error.
func Validar() error {
	for _, r := range []Role{RoleAdmin, RoleStaff, RoleCarrier, RoleManagement, RoleNew} {
		p, ok := tabela[r]
		if !ok {
			return fmt.Errorf("acesso: role %q sem perfil", r)
		}
		for _, pg := range p.paginas {
			if !slices.Contains(registro, pg) {
				return fmt.Errorf("acesso: role %q referencia pagina desconhecida %q", r, pg)
			}
		}
		if !slices.Contains(p.paginas, p.landing) {
			return fmt.Errorf("acesso: landing %q de %q nao esta entre suas paginas", p.landing, r)
		}
	}
	return nil
}
