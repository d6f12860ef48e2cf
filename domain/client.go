package domain

// ClientType drives automatic pricing adjustments.
type ClientType string

const (
	ClientRegular   ClientType = "regular"
	ClientElderly   ClientType = "elderly"
	ClientInsurance ClientType = "insurance"
)

// Values written over a client's personal data on LGPD deletion.
const (
	AnonymizedName  = "DELETED_USER"
	AnonymizedCPF   = "00000000000"
	AnonymizedPhone = "00000000000"
)

// Client is a registered customer.
type Client struct {
	ID                  int64      `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	CPF                 string     `db:"cpf" json:"cpf"`
	Phone               string     `db:"phone" json:"phone"`
	Email               *string    `db:"email" json:"email,omitempty"`
	Address             *string    `db:"address" json:"address,omitempty"`
	BirthDate           *string    `db:"birth_date" json:"birth_date,omitempty"`
	ClientType          ClientType `db:"client_type" json:"client_type"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	ModificationHistory string     `db:"modification_history" json:"-"`
	CreatedAt           string     `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt           string     `db:"updated_at" json:"updated_at,omitempty"`
}

// ClientModification is one entry of a client's audit trail.
type ClientModification struct {
	Action          string `json:"action"`
	Timestamp       string `json:"timestamp"`
	Reason          string `json:"reason,omitempty"`
	OriginalCPFHash string `json:"original_cpf_hash,omitempty"`
}
