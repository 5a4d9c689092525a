/*
handlers.go - HTTP API handlers for the zakat bookkeeping engine

PURPOSE:
  Exposes the bookkeeping engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/login             Exchange credentials for a token
    GET    /api/auth/me                Current operator

  Accounts and ledger:
    GET    /api/accounts               List accounts
    POST   /api/accounts               Create account
    GET    /api/accounts/balances      Last-known balance per account
    GET    /api/accounts/{id}          Account details
    PUT    /api/accounts/{id}          Update account
    DELETE /api/accounts/{id}          Delete (rejected with history)
    GET    /api/accounts/{id}/ledger   Paged entry listing
    GET    /api/accounts/{id}/balance  Last-known balance
    POST   /api/accounts/{id}/recompute Authoritative balance replay
    POST   /api/ledger/entries         Manual IN/OUT append

  Rekonsiliasi:
    GET    /api/rekonsiliasi           List adjustments
    POST   /api/rekonsiliasi           Create (admin, pairs ledger entry)
    DELETE /api/rekonsiliasi/{id}      Delete pair (admin)
    GET    /api/rekonsiliasi/summary   Signed totals per year

  Hak amil:
    GET    /api/hakamil/config         Basis mode + percentages
    PUT    /api/hakamil/config         Update (admin)
    GET    /api/hakamil/summary        Yearly per-category rollup
    GET    /api/hakamil/summary/monthly Month slice of the rollup

  Pemasukan and bulk:
    POST   /api/pemasukan/uang         Single money income
    POST   /api/pemasukan/beras        Single rice income
    POST   /api/bulk                   Bulk payment sheet submit
    GET    /api/bulk/{receiptNo}       Reprint reconstruction

  Master data:
    GET/POST /api/muzakki, /api/tahun

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing/invalid authentication
  - 403: Operator lacks the admin role
  - 404: Resource not found
  - 409: Conflict (duplicate source, account has history)
  - 500: Internal errors, consistency violations

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baitulmaal/zakat-engine/auth"
	"github.com/baitulmaal/zakat-engine/bulk"
	"github.com/baitulmaal/zakat-engine/hakamil"
	"github.com/baitulmaal/zakat-engine/ledger"
	"github.com/baitulmaal/zakat-engine/pemasukan"
	"github.com/baitulmaal/zakat-engine/rekonsiliasi"
	"github.com/baitulmaal/zakat-engine/tahun"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Auth     *auth.Service
	Tokens   *auth.TokenIssuer
	Accounts *ledger.Registry
	Ledger   *ledger.Ledger
	Rekon    *rekonsiliasi.Manager
	Configs  hakamil.ConfigStore
	Basis    *hakamil.Resolver
	Reports  *hakamil.Reporter
	Income   *pemasukan.Service
	Muzakki  pemasukan.MuzakkiStore
	Bulk     *bulk.Processor
	Reprints *bulk.Reconstructor
	Tahun    *tahun.Service
	TahunSt  tahun.Store

	// BulkRowLimit caps rows per bulk receipt. 0 = unlimited.
	BulkRowLimit int
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login exchanges credentials for a bearer token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	op, err := h.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Login gagal", err)
		return
	}

	token, err := h.Tokens.Issue(op)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Operator: toOperatorDTO(op),
	})
}

// Me returns the operator resolved from the bearer token.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	op := auth.FromContext(r.Context())
	if op == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated", auth.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, toOperatorDTO(op))
}

func toOperatorDTO(op *auth.Operator) OperatorDTO {
	return OperatorDTO{
		ID:          op.ID,
		Username:    op.Username,
		NamaLengkap: op.NamaLengkap,
		Role:        string(op.Role),
	}
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

// ListAccounts returns all accounts, optionally filtered.
// GET /api/accounts?active=true&channel=kas
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var f ledger.AccountFilter
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		f.Active = &active
	}
	f.Channel = ledger.Channel(r.URL.Query().Get("channel"))

	accounts, err := h.Accounts.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount registers a new kas/bank account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	acct, err := h.Accounts.Create(r.Context(), ledger.CreateAccountInput{
		Name:      req.Name,
		Channel:   ledger.Channel(req.Channel),
		Active:    req.Active,
		Metadata:  req.Metadata,
		SortOrder: req.SortOrder,
		CreatedBy: op.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*acct))
}

// GetAccount returns one account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	acct, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get account", err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*acct))
}

// UpdateAccount patches account fields.
// PUT /api/accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.UpdateAccountInput{
		ID:        ledger.AccountID(chi.URLParam(r, "id")),
		Name:      req.Name,
		Active:    req.Active,
		Metadata:  req.Metadata,
		SortOrder: req.SortOrder,
	}
	if req.Channel != nil {
		ch := ledger.Channel(*req.Channel)
		in.Channel = &ch
	}

	acct, err := h.Accounts.Update(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*acct))
}

// DeleteAccount removes an account. Accounts with ledger history are
// rejected; deactivate them instead.
// DELETE /api/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	err := h.Accounts.Delete(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetLedger returns the paged entry listing for an account.
// GET /api/accounts/{id}/ledger?type=IN&from=2026-03-01&to=2026-03-31&q=Bulk&limit=50&offset=0
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	f := ledger.EntryFilter{
		Type:   ledger.EntryType(q.Get("type")),
		Search: q.Get("q"),
	}
	f.DateFrom, _ = parseDate(q.Get("from"))
	f.DateTo, _ = parseDate(q.Get("to"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if f.Limit <= 0 {
		f.Limit = 50
	}

	entries, total, err := h.Ledger.Entries(r.Context(), id, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, LedgerPageResponse{Entries: dtos, Total: total})
}

// GetBalance returns the last-known (cached) balance.
// GET /api/accounts/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	balance, err := h.Ledger.LastKnownBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AccountID: string(id), BalanceRp: balance})
}

// RecomputeBalance replays the full entry history and returns the
// authoritative balance. Slower than GetBalance, always correct.
// POST /api/accounts/{id}/recompute
func (h *Handler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	balance, err := h.Ledger.RecomputeBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AccountID: string(id), BalanceRp: balance})
}

// ListBalances returns the last-known balance of every account.
// GET /api/accounts/balances
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Ledger.LastKnownBalances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read balances", err)
		return
	}

	dtos := make([]BalanceDTO, 0, len(balances))
	for id, b := range balances {
		dtos = append(dtos, BalanceDTO{AccountID: string(id), BalanceRp: b})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AppendEntry appends a manual IN/OUT entry.
// POST /api/ledger/entries
func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entryType := ledger.EntryType(req.Type)
	if entryType != ledger.EntryIn && entryType != ledger.EntryOut {
		writeError(w, http.StatusBadRequest, "Entry type must be IN or OUT", nil)
		return
	}

	entryDate, _ := parseDate(req.EntryDate)
	entry, err := h.Ledger.Append(r.Context(), ledger.AppendInput{
		AccountID:   ledger.AccountID(req.AccountID),
		Type:        entryType,
		AmountRp:    req.AmountRp,
		EntryDate:   entryDate,
		Notes:       req.Notes,
		ReferenceNo: req.ReferenceNo,
		CreatedBy:   op.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// =============================================================================
// REKONSILIASI ENDPOINTS
// =============================================================================

// ListRekonsiliasi returns all adjustments, optionally per year.
// GET /api/rekonsiliasi?tahun_zakat_id=...
func (h *Handler) ListRekonsiliasi(w http.ResponseWriter, r *http.Request) {
	records, err := h.Rekon.List(r.Context(), r.URL.Query().Get("tahun_zakat_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rekonsiliasi", err)
		return
	}

	dtos := make([]RekonsiliasiDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRekonsiliasiDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRekonsiliasi creates an adjustment and its paired ledger entry.
// Admin only.
// POST /api/rekonsiliasi
func (h *Handler) CreateRekonsiliasi(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req CreateRekonsiliasiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tanggal, _ := parseDate(req.Tanggal)
	rec, err := h.Rekon.Create(r.Context(), rekonsiliasi.CreateInput{
		TahunZakatID: req.TahunZakatID,
		Jenis:        rekonsiliasi.Jenis(req.Jenis),
		Akun:         ledger.Channel(req.Akun),
		Jumlah:       req.Jumlah,
		Tanggal:      tanggal,
		Catatan:      req.Catatan,
		OperatorID:   op.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRekonsiliasiDTO(*rec))
}

// DeleteRekonsiliasi removes an adjustment and its ledger mirror.
// Admin only.
// DELETE /api/rekonsiliasi/{id}
func (h *Handler) DeleteRekonsiliasi(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	err := h.Rekon.Delete(r.Context(), chi.URLParam(r, "id"), op.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RekonsiliasiSummary returns signed adjustment totals for a year.
// GET /api/rekonsiliasi/summary?tahun_zakat_id=...
func (h *Handler) RekonsiliasiSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Rekon.Summarize(r.Context(), r.URL.Query().Get("tahun_zakat_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize rekonsiliasi", err)
		return
	}
	writeJSON(w, http.StatusOK, RekonsiliasiSummaryDTO{
		TotalUangRp:  summary.TotalUangRp,
		TotalBerasKg: summary.TotalBerasKg,
	})
}

// =============================================================================
// HAK AMIL ENDPOINTS
// =============================================================================

// GetHakAmilConfig returns the resolved basis configuration for a year.
// Absent configs resolve to the defaults.
// GET /api/hakamil/config?tahun_zakat_id=...
func (h *Handler) GetHakAmilConfig(w http.ResponseWriter, r *http.Request) {
	tahunZakatID := r.URL.Query().Get("tahun_zakat_id")
	basis, err := h.Basis.Resolve(r.Context(), tahunZakatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve config", err)
		return
	}

	dto := HakAmilConfigDTO{
		TahunZakatID: tahunZakatID,
		BasisMode:    string(basis.Mode),
		Percent:      make(map[string]string, len(hakamil.Categories)),
	}
	for _, c := range hakamil.Categories {
		dto.Percent[string(c)] = basis.PercentFor(c).String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateHakAmilConfig switches the basis mode and/or percentages for a
// year. Admin only. Existing snapshots are not rewritten.
// PUT /api/hakamil/config?tahun_zakat_id=...
func (h *Handler) UpdateHakAmilConfig(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}
	if err := h.Auth.RequireAdmin(r.Context(), op.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	tahunZakatID := r.URL.Query().Get("tahun_zakat_id")
	if tahunZakatID == "" {
		writeError(w, http.StatusBadRequest, "tahun_zakat_id is required", nil)
		return
	}

	var req UpdateHakAmilConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mode := hakamil.BasisMode(req.BasisMode)
	if mode != hakamil.BasisGross && mode != hakamil.BasisNet {
		writeError(w, http.StatusBadRequest, "Unknown basis mode", nil)
		return
	}

	cfg := hakamil.Config{
		TahunZakatID: tahunZakatID,
		BasisMode:    mode,
		Percent:      make(map[hakamil.Category]decimal.Decimal),
		UpdatedBy:    op.ID,
		UpdatedAt:    time.Now(),
	}
	for name, raw := range req.Percent {
		p, err := decimal.NewFromString(raw)
		if err != nil || p.IsNegative() {
			writeError(w, http.StatusBadRequest, "Invalid percentage for "+name, err)
			return
		}
		cfg.Percent[hakamil.Category(name)] = p
	}

	if err := h.Configs.UpsertConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save config", err)
		return
	}
	h.GetHakAmilConfig(w, r)
}

// HakAmilSummary returns the yearly per-category accrual rollup.
// GET /api/hakamil/summary?tahun_zakat_id=...
func (h *Handler) HakAmilSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.YearlySummary(r.Context(), r.URL.Query().Get("tahun_zakat_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// HakAmilMonthlySummary returns one month's slice of the rollup.
// GET /api/hakamil/summary/monthly?tahun_zakat_id=...&year=2026&month=3
func (h *Handler) HakAmilMonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	summary, err := h.Reports.MonthlySummary(r.Context(), q.Get("tahun_zakat_id"), year, time.Month(month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// PEMASUKAN ENDPOINTS
// =============================================================================

// RecordUang records one money income row and accrues its snapshot.
// POST /api/pemasukan/uang
func (h *Handler) RecordUang(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req RecordUangRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tanggal, _ := parseDate(req.Tanggal)
	row, err := h.Income.RecordUang(r.Context(), pemasukan.RecordUangInput{
		TahunZakatID: req.TahunZakatID,
		MuzakkiID:    req.MuzakkiID,
		Kategori:     pemasukan.KategoriUang(req.Kategori),
		Akun:         ledger.Channel(req.Akun),
		JumlahUangRp: req.JumlahUangRp,
		Tanggal:      tanggal,
		Catatan:      req.Catatan,
		CreatedBy:    op.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPemasukanUangDTO(*row))
}

// RecordBeras records one rice income row and accrues its snapshot.
// POST /api/pemasukan/beras
func (h *Handler) RecordBeras(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req RecordBerasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tanggal, _ := parseDate(req.Tanggal)
	row, err := h.Income.RecordBeras(r.Context(), pemasukan.RecordBerasInput{
		TahunZakatID:  req.TahunZakatID,
		MuzakkiID:     req.MuzakkiID,
		Kategori:      pemasukan.KategoriBeras(req.Kategori),
		JumlahBerasKg: req.JumlahBerasKg,
		Tanggal:       tanggal,
		Catatan:       req.Catatan,
		CreatedBy:     op.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPemasukanBerasDTO(*row))
}

// =============================================================================
// MUZAKKI ENDPOINTS
// =============================================================================

// ListMuzakki returns all registered payers.
// GET /api/muzakki
func (h *Handler) ListMuzakki(w http.ResponseWriter, r *http.Request) {
	records, err := h.Muzakki.ListMuzakki(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list muzakki", err)
		return
	}

	dtos := make([]MuzakkiDTO, len(records))
	for i, m := range records {
		dtos[i] = MuzakkiDTO{ID: m.ID, Nama: m.Nama, Alamat: m.Alamat, Telepon: m.Telepon}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMuzakki registers a payer.
// POST /api/muzakki
func (h *Handler) CreateMuzakki(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	var req CreateMuzakkiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Nama == "" {
		writeError(w, http.StatusBadRequest, "Nama is required", nil)
		return
	}

	m := pemasukan.Muzakki{
		ID:        uuid.NewString(),
		Nama:      req.Nama,
		Alamat:    req.Alamat,
		Telepon:   req.Telepon,
		CreatedAt: time.Now(),
	}
	if err := h.Muzakki.InsertMuzakki(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create muzakki", err)
		return
	}
	writeJSON(w, http.StatusCreated, MuzakkiDTO{ID: m.ID, Nama: m.Nama, Alamat: m.Alamat, Telepon: m.Telepon})
}

// =============================================================================
// BULK ENDPOINTS
// =============================================================================

// SubmitBulk processes a payment-sheet submission. Partial failures
// return 200 with success=false and per-row errors; only the missing
// operator or a blown row limit abort the whole batch.
// POST /api/bulk
func (h *Handler) SubmitBulk(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req BulkSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]bulk.Row, len(req.Rows))
	for i, d := range req.Rows {
		rows[i] = toBulkRow(d)
	}

	// The caller may bring its own human-shareable receipt number; we
	// only generate one when the sheet arrives without it.
	receiptNo := req.ReceiptNo
	if receiptNo == "" {
		receiptNo = uuid.NewString()
	}

	result, err := h.Bulk.Submit(r.Context(), rows, bulk.Meta{
		OperatorID:   op.ID,
		TahunZakatID: req.TahunZakatID,
		ReceiptNo:    receiptNo,
		RowLimit:     h.BulkRowLimit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := BulkResultDTO{
		Success:   result.Success,
		ReceiptNo: result.ReceiptNo,
		Rows:      make([]BulkRowDTO, len(result.Rows)),
		Errors:    result.Errors,
	}
	for i, row := range result.Rows {
		dto.Rows[i] = toBulkRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dto)
}

// ReprintBulk reconstructs a past submission from the income tables.
// GET /api/bulk/{receiptNo}?tahun_zakat_id=...
func (h *Handler) ReprintBulk(w http.ResponseWriter, r *http.Request) {
	receiptNo := chi.URLParam(r, "receiptNo")
	reprint, err := h.Reprints.Reconstruct(r.Context(), r.URL.Query().Get("tahun_zakat_id"), receiptNo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reconstruct receipt", err)
		return
	}
	if len(reprint.Rows) == 0 && reprint.Log == nil {
		writeError(w, http.StatusNotFound, "Receipt not found", nil)
		return
	}

	dto := BulkReprintDTO{
		ReceiptNo: reprint.ReceiptNo,
		Rows:      make([]BulkRowDTO, len(reprint.Rows)),
	}
	for i, row := range reprint.Rows {
		dto.Rows[i] = toBulkRowDTO(row)
	}
	if reprint.Log != nil {
		dto.RowCount = reprint.Log.RowCount
		dto.CreatedAt = fmtTime(reprint.Log.CreatedAt)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// TAHUN ENDPOINTS
// =============================================================================

// ListTahun returns all fiscal years.
// GET /api/tahun
func (h *Handler) ListTahun(w http.ResponseWriter, r *http.Request) {
	years, err := h.TahunSt.ListTahun(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tahun zakat", err)
		return
	}

	dtos := make([]TahunDTO, len(years))
	for i, t := range years {
		dtos[i] = toTahunDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTahun registers a fiscal year with its rice valuation.
// POST /api/tahun
func (h *Handler) CreateTahun(w http.ResponseWriter, r *http.Request) {
	op, ok := h.requireOperator(w, r)
	if !ok {
		return
	}
	if err := h.Auth.RequireAdmin(r.Context(), op.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	var req TahunDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TahunHijriah == "" || req.TahunMasehi == 0 {
		writeError(w, http.StatusBadRequest, "tahun_hijriah and tahun_masehi are required", nil)
		return
	}

	t := tahun.TahunZakat{
		ID:                uuid.NewString(),
		TahunHijriah:      req.TahunHijriah,
		TahunMasehi:       req.TahunMasehi,
		NilaiBerasPerKgRp: req.NilaiBerasPerKgRp,
		NilaiZakatUangRp:  req.NilaiZakatUangRp,
		Active:            req.Active,
		CreatedAt:         time.Now(),
	}
	if err := h.TahunSt.InsertTahun(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create tahun zakat", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTahunDTO(t))
}

func toTahunDTO(t tahun.TahunZakat) TahunDTO {
	return TahunDTO{
		ID:                t.ID,
		TahunHijriah:      t.TahunHijriah,
		TahunMasehi:       t.TahunMasehi,
		NilaiBerasPerKgRp: t.NilaiBerasPerKgRp,
		NilaiZakatUangRp:  t.NilaiZakatUangRp,
		Active:            t.Active,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// requireOperator resolves the authenticated operator or writes 401.
func (h *Handler) requireOperator(w http.ResponseWriter, r *http.Request) (*auth.Operator, bool) {
	op := auth.FromContext(r.Context())
	if op == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated", auth.ErrNotAuthenticated)
		return nil, false
	}
	return op, true
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var multiplicity *ledger.MultiplicityError

	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, tahun.ErrTahunNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Not authenticated", err)
	case errors.Is(err, auth.ErrAdminRequired):
		writeError(w, http.StatusForbidden, "Admin role required", err)
	case errors.Is(err, ledger.ErrAccountHasEntries),
		errors.Is(err, ledger.ErrDuplicateSource),
		errors.Is(err, hakamil.ErrSnapshotExists):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.As(err, &multiplicity):
		// More than one ledger mirror for one rekonsiliasi means the
		// pairing invariant is already broken; surface loudly.
		writeError(w, http.StatusInternalServerError, "Ledger consistency violation", err)
	case errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, ledger.ErrAmountNotPositive),
		errors.Is(err, ledger.ErrAmountZero),
		errors.Is(err, bulk.ErrRowLimitExceeded):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusBadRequest, "Request failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
