package patrimonio

import (
	"time"

	"github.com/google/uuid"
)

// Conservation states accepted for a patrimônio record.
const (
	ConservacaoBom           = "Bom"
	ConservacaoOcioso        = "Ocioso"
	ConservacaoIrrecuperavel = "Irrecuperável"
)

func ValidConservacao(v string) bool {
	switch v {
	case ConservacaoBom, ConservacaoOcioso, ConservacaoIrrecuperavel:
		return true
	}
	return false
}

type Image struct {
	FileName string `json:"fileName"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Patrimonio is one tracked physical asset. At least one of PatNum/AtmNum
// is always set on a stored record.
type Patrimonio struct {
	ID           int64      `json:"id"`
	PatNum       string     `json:"patNum"`
	AtmNum       string     `json:"atmNum"`
	Descricao    string     `json:"descricao"`
	Valor        string     `json:"valor"`
	Sala         string     `json:"sala"`
	Conservacao  string     `json:"conservacao"`
	Image        Image      `json:"image"`
	OwnerID      *uuid.UUID `json:"owner_id"`
	LastEditedBy string     `json:"lastEditedBy"`
	LastEditedAt time.Time  `json:"lastEditedAt"`
}

// Grant gives a user edit rights over one specific patrimônio
// (PatrimonioID set) or over everything a given owner has
// (PatrimonioID nil, a wildcard grant). Exactly one of the two.
type Grant struct {
	ID           int64      `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	PatrimonioID *int64     `json:"patrimonio_id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
}
