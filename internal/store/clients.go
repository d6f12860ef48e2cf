package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pharmapos/m/domain"
	"pharmapos/m/internal/cpf"
)

const clientColumns = `id, name, cpf, phone, email, address, birth_date, client_type, is_active,
	modification_history, created_at, updated_at`

// ListClients searches clients by name or CPF digits. Anonymized and
// otherwise inactive clients are skipped unless includeInactive is set.
func (s *Store) ListClients(ctx context.Context, query string, includeInactive bool) ([]domain.Client, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if !includeInactive {
		clauses = append(clauses, "is_active = ?")
		args = append(args, true)
	}
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		if digits := cpf.Normalize(query); digits != "" {
			clauses = append(clauses, "(LOWER(name) LIKE ? OR cpf LIKE ?)")
			args = append(args, like, "%"+digits+"%")
		} else {
			clauses = append(clauses, "LOWER(name) LIKE ?")
			args = append(args, like)
		}
	}

	sqlQuery := `SELECT ` + clientColumns + ` FROM clients`
	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlQuery += " ORDER BY name"

	clients := []domain.Client{}
	if err := s.db.SelectContext(ctx, &clients, s.q(sqlQuery), args...); err != nil {
		return nil, errors.Wrap(err, "list clients")
	}
	return clients, nil
}

// ActiveClients is the client source of the sales screen.
func (s *Store) ActiveClients(ctx context.Context) ([]domain.Client, error) {
	return s.ListClients(ctx, "", false)
}

func (s *Store) Client(ctx context.Context, id int64) (domain.Client, error) {
	var c domain.Client
	if err := s.db.GetContext(ctx, &c, s.q(`SELECT `+clientColumns+` FROM clients WHERE id = ?`), id); err != nil {
		return domain.Client{}, notFound(err, "client %d", id)
	}
	return c, nil
}

// CreateClient registers a client after validating the CPF. The CPF is
// stored as digits only.
func (s *Store) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := validateClient(&c); err != nil {
		return domain.Client{}, err
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.q(`SELECT EXISTS(SELECT 1 FROM clients WHERE cpf = ? AND is_active = ?)`), c.CPF, true); err != nil {
		return domain.Client{}, errors.Wrap(err, "check cpf")
	}
	if exists {
		return domain.Client{}, fail(ErrConflict, "CPF %s already registered", cpf.Format(c.CPF))
	}

	c.IsActive = true
	c.ModificationHistory = "[]"
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO clients (name, cpf, phone, email, address, birth_date, client_type, is_active, modification_history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		c.Name, c.CPF, c.Phone, c.Email, c.Address, c.BirthDate, c.ClientType, c.IsActive, c.ModificationHistory).Scan(&c.ID)
	if err != nil {
		return domain.Client{}, errors.Wrap(err, "insert client")
	}
	return c, nil
}

// UpdateClient rewrites a client's registration data and records the
// change in its history.
func (s *Store) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := validateClient(&c); err != nil {
		return domain.Client{}, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Client{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var current domain.Client
	if err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT `+clientColumns+` FROM clients WHERE id = ?`), c.ID); err != nil {
		return domain.Client{}, notFound(err, "client %d", c.ID)
	}
	if !current.IsActive {
		return domain.Client{}, fail(ErrConflict, "client %d is no longer active", c.ID)
	}
	history, err := appendHistory(current.ModificationHistory, domain.ClientModification{
		Action:    "UPDATE",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return domain.Client{}, err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE clients SET name = ?, cpf = ?, phone = ?, email = ?, address = ?, birth_date = ?, client_type = ?,
		modification_history = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		c.Name, c.CPF, c.Phone, c.Email, c.Address, c.BirthDate, c.ClientType, history, c.ID)
	if err != nil {
		return domain.Client{}, errors.Wrap(err, "update client")
	}
	if err := tx.Commit(); err != nil {
		return domain.Client{}, errors.Wrap(err, "commit")
	}
	c.IsActive = true
	c.ModificationHistory = history
	return c, nil
}

// AnonymizeClient fulfils an LGPD deletion request: personal data is
// overwritten, the client deactivated, and a keyed fingerprint of the original CPF kept
// in the audit history. Past orders keep pointing at the record.
func (s *Store) AnonymizeClient(ctx context.Context, id int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "User requested data deletion"
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var current domain.Client
	if err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT `+clientColumns+` FROM clients WHERE id = ?`), id); err != nil {
		return notFound(err, "client %d", id)
	}
	if !current.IsActive && current.Name == domain.AnonymizedName {
		return nil
	}

	history, err := appendHistory(current.ModificationHistory, domain.ClientModification{
		Action:          "LGPD_DELETION",
		Timestamp:       s.now().UTC().Format(time.RFC3339),
		Reason:          reason,
		OriginalCPFHash: s.fingerprint(current.CPF),
	})
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE clients SET name = ?, cpf = ?, phone = ?, email = NULL, address = NULL, birth_date = NULL,
		is_active = ?, modification_history = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		domain.AnonymizedName, domain.AnonymizedCPF, domain.AnonymizedPhone, false, history, id)
	if err != nil {
		return errors.Wrap(err, "anonymize client")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// fingerprint is an HMAC-SHA256 of value under the store secret. A plain
// digest of a CPF is reversible by enumeration.
func (s *Store) fingerprint(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// ClientHistory decodes the audit trail of a client.
func ClientHistory(c domain.Client) ([]domain.ClientModification, error) {
	var entries []domain.ClientModification
	if c.ModificationHistory == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(c.ModificationHistory), &entries); err != nil {
		return nil, errors.Wrap(err, "decode modification history")
	}
	return entries, nil
}

func appendHistory(raw string, entry domain.ClientModification) (string, error) {
	entries, err := ClientHistory(domain.Client{ModificationHistory: raw})
	if err != nil {
		return "", err
	}
	entries = append(entries, entry)
	b, err := json.Marshal(entries)
	if err != nil {
		return "", errors.Wrap(err, "encode modification history")
	}
	return string(b), nil
}

func validateClient(c *domain.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fail(ErrInvalid, "name is required")
	}
	if !cpf.Valid(c.CPF) {
		return fail(ErrInvalid, "invalid CPF")
	}
	c.CPF = cpf.Normalize(c.CPF)
	c.Phone = cpf.Normalize(c.Phone)
	switch c.ClientType {
	case "":
		c.ClientType = domain.ClientRegular
	case domain.ClientRegular, domain.ClientElderly, domain.ClientInsurance:
	default:
		return fail(ErrInvalid, "unknown client_type %q", c.ClientType)
	}
	return nil
}
