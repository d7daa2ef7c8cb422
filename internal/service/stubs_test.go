package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/eventos"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/sessao"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Clock ────────────────────────────────────────────────────────────────────

var brt = time.FixedZone("BRT", -3*3600)

// Monday, 2026-10-19, midday in Brasilia.
var agora = time.Date(2026, 10, 19, 12, 0, 0, 0, brt)

func relogioFixo() Relogio {
	return Relogio{Loc: brt, Agora: func() time.Time { return agora }}
}

func dia(s string) time.Time {
	t, err := time.Parse(canhoto.FormatoData, s)
	if err != nil {
		panic(err)
	}
	return t
}

func diaPtr(s string) *time.Time {
	t := dia(s)
	return &t
}

// ── In-memory NotaFiscal repository ──────────────────────────────────────────

type stubNotaRepo struct {
	notas []*model.NotaFiscal
	err   error
}

func (r *stubNotaRepo) Create(_ context.Context, n *model.NotaFiscal) error {
	for _, o := range r.notas {
		if o.Numero == n.Numero {
			return gorm.ErrDuplicatedKey
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notas = append(r.notas, n)
	return nil
}

func (r *stubNotaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.NotaFiscal, error) {
	for _, n := range r.notas {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubNotaRepo) FindByNumero(_ context.Context, numero string) (*model.NotaFiscal, error) {
	for _, n := range r.notas {
		if n.Numero == numero {
			return n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubNotaRepo) Update(_ context.Context, n *model.NotaFiscal) error {
	for i, o := range r.notas {
		if o.ID == n.ID {
			cp := *n
			r.notas[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubNotaRepo) UpdateStatus(_ context.Context, id uuid.UUID, st canhoto.Status) error {
	for _, n := range r.notas {
		if n.ID == id {
			n.Status = st
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubNotaRepo) DeleteBatch(_ context.Context, ids []uuid.UUID) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	alvo := map[uuid.UUID]bool{}
	for _, id := range ids {
		alvo[id] = true
	}
	var restantes []*model.NotaFiscal
	var n int64
	for _, nf := range r.notas {
		if alvo[nf.ID] {
			n++
			continue
		}
		restantes = append(restantes, nf)
	}
	r.notas = restantes
	return n, nil
}

func (r *stubNotaRepo) filtrar(f canhoto.Filtro, now time.Time, loc *time.Location) []model.NotaFiscal {
	pred := f.Compilar(now, loc)
	var out []model.NotaFiscal
	for _, n := range r.notas {
		if pred(n.Canhoto()) {
			out = append(out, *n)
		}
	}
	return out
}

func (r *stubNotaRepo) List(_ context.Context, f dto.NotaFilter, now time.Time, loc *time.Location) ([]model.NotaFiscal, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	all := r.filtrar(f.Filtro, now, loc)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Numero < all[j].Numero })
	total := int64(len(all))
	ini := (f.Page - 1) * f.Limit
	if ini > len(all) {
		ini = len(all)
	}
	fim := min(ini+f.Limit, len(all))
	return all[ini:fim], total, nil
}

func (r *stubNotaRepo) ListAll(_ context.Context, f canhoto.Filtro, now time.Time, loc *time.Location) ([]model.NotaFiscal, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.filtrar(f, now, loc), nil
}

func (r *stubNotaRepo) Opcoes(context.Context) (repository.OpcoesFiltro, error) {
	return repository.OpcoesFiltro{Fretistas: []string{"João"}}, nil
}

func notaFixture(numero, fretista string, st canhoto.Status, venc *time.Time) *model.NotaFiscal {
	return &model.NotaFiscal{
		ID:             uuid.New(),
		Numero:         numero,
		DataEmissao:    dia("2026-10-01"),
		DataVencimento: venc,
		Status:         st,
		Cliente:        "Mercado Sol",
		Fretista:       fretista,
	}
}

// ── In-memory Usuario repository ─────────────────────────────────────────────

type stubUsuarioRepo struct {
	users map[uuid.UUID]*model.Usuario
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{users: map[uuid.UUID]*model.Usuario{}}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	for _, o := range r.users {
		if o.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uuid.New()
	r.users[u.ID] = u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.users {
		if (u.Username == username || (u.Email != nil && *u.Email == username)) && u.Activo {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) ListAll(context.Context) ([]model.Usuario, error) {
	out := make([]model.Usuario, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *stubUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.users[u.ID] = u
	return nil
}

func (r *stubUsuarioRepo) SetActivo(_ context.Context, id uuid.UUID, activo bool) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Activo = activo
	return nil
}

func (r *stubUsuarioRepo) CountAdmins(context.Context) (int64, error) {
	var n int64
	for _, u := range r.users {
		if u.Role == "admin" && u.Activo {
			n++
		}
	}
	return n, nil
}

// ── In-memory Documento repository ───────────────────────────────────────────

type stubDocumentoRepo struct {
	repository.DocumentoRepository
	docs   map[uuid.UUID]*model.Documento
	filtro dto.DocumentoFilter
}

func (r *stubDocumentoRepo) Create(_ context.Context, d *model.Documento) error {
	r.docs[d.ID] = d
	return nil
}

func (r *stubDocumentoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Documento, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *stubDocumentoRepo) List(_ context.Context, f dto.DocumentoFilter) ([]model.Documento, int64, error) {
	r.filtro = f
	var out []model.Documento
	for _, d := range r.docs {
		if f.Fretista != "" && d.Fretista != f.Fretista {
			continue
		}
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (r *stubDocumentoRepo) Update(_ context.Context, d *model.Documento) error {
	r.docs[d.ID] = d
	return nil
}

// ── Collaborators ────────────────────────────────────────────────────────────

type storageFake struct {
	objetos map[string][]byte
	tipos   map[string]string
	err     error
}

func newStorageFake() *storageFake {
	return &storageFake{objetos: map[string][]byte{}, tipos: map[string]string{}}
}

func (s *storageFake) Put(_ context.Context, key, contentType string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.objetos[key] = data
	s.tipos[key] = contentType
	return nil
}

func (s *storageFake) PresignGet(_ context.Context, key string) (string, time.Time, error) {
	return "https://s3.example.com/" + key + "?sig=x", agora.Add(15 * time.Minute), nil
}

func (s *storageFake) Delete(_ context.Context, key string) error {
	delete(s.objetos, key)
	delete(s.tipos, key)
	return nil
}

type hubFake struct{ eventos []eventos.Evento }

func (h *hubFake) Publicar(_ context.Context, e eventos.Evento) { h.eventos = append(h.eventos, e) }

type filaFake struct {
	ids       []uuid.UUID
	fretistas []string
	err       error
}

func (f *filaFake) EnqueueOCR(_ context.Context, id uuid.UUID, fretista string) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, id)
	f.fretistas = append(f.fretistas, fretista)
	return nil
}

type revogacaoFake struct {
	revogados map[string]time.Time
	// cortes keeps the cutoff of each user-wide revocation, ate keeps its expiry
	cortes map[string]time.Time
	ate    map[string]time.Time
}

func (r *revogacaoFake) Revogar(_ context.Context, jti string, ate time.Time) error {
	r.revogados[jti] = ate
	return nil
}

func (r *revogacaoFake) RevogarUsuario(_ context.Context, usuario string, ate time.Time) error {
	if r.cortes == nil {
		r.cortes, r.ate = map[string]time.Time{}, map[string]time.Time{}
	}
	r.cortes[usuario] = time.Now()
	r.ate[usuario] = ate
	return nil
}

func (r *revogacaoFake) Revogado(_ context.Context, c *sessao.Claims) (bool, error) {
	if corte, ok := r.cortes[c.UserID]; ok && sessao.EmitidoAte(c, corte) {
		return true, nil
	}
	_, ok := r.revogados[c.ID]
	return ok, nil
}

func ctxCom(role, fretista string) context.Context {
	return sessao.NewContext(context.Background(), &sessao.Sessao{
		UsuarioID: uuid.New(),
		Username:  "u-" + role,
		Role:      acesso.Role(role),
		Fretista:  fretista,
	})
}

var errBanco = errors.New("connection reset by peer")
