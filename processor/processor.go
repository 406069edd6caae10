package processor

import (
	"context"
	"time"

	"github.com/guregu/null"
	"github.com/riaintel/advflow/pkg/table"
)

// Processor defines the interface for processing messages.
type Processor interface {
	Process(context.Context, Message) error
	Subscribe(Processor)
}

type ProcessorConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// Message encapsulates the payload to be processed with optional metadata.
type Message struct {
	Payload  interface{}
	Metadata map[string]interface{}
}

// Period returns the reporting period carried in message metadata, if any.
func (m *Message) Period() (string, bool) {
	if m.Metadata == nil {
		return "", false
	}
	p, ok := m.Metadata["period"].(string)
	return p, ok
}

// PeriodFilings is one reporting period's pair of normalized filing tables,
// emitted by the filing CSV source adapter.
type PeriodFilings struct {
	Period string // 8-digit yyyymmdd report period
	BaseA  *table.Table
	BaseB  *table.Table
}

// GoldTable is a named analytical table emitted by the gold builder stage.
type GoldTable struct {
	Name  string
	Table *table.Table
}

// PreparedRow is a silver row annotated with the typed sort and filter
// keys. CRD and ReportDate are always set; rows where either cannot be
// derived never become PreparedRows.
type PreparedRow struct {
	CRD           int64
	ReportDate    time.Time
	DateSubmitted null.Time
	FilingID      null.String

	// Raw is the underlying silver row, keyed by canonical column name.
	Raw map[string]interface{}
}
