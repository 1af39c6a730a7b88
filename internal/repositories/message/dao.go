package message

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const messagesTable = "messages"

// Row is the messages row
type Row struct {
	ID            string                                  `db:"id"`
	NegotiationID string                                  `db:"negotiation_id"`
	Sender        string                                  `db:"sender"`
	Content       string                                  `db:"content"`
	Timestamp     time.Time                               `db:"sent_at"`
	Metadata      database.JSONB[*models.MessageMetadata] `db:"metadata"`
}

var rowStruct = database.NewStruct(new(Row))

func FromMessage(m *models.Message) *Row {
	return &Row{
		ID:            m.ID,
		NegotiationID: m.NegotiationID,
		Sender:        string(m.Sender),
		Content:       m.Content,
		Timestamp:     m.Timestamp,
		Metadata:      database.NewJSONB(m.Metadata),
	}
}

func ToMessage(row *Row) models.Message {
	return models.Message{
		ID:            row.ID,
		NegotiationID: row.NegotiationID,
		Sender:        models.Sender(row.Sender),
		Content:       row.Content,
		Timestamp:     row.Timestamp,
		Metadata:      row.Metadata.Data,
	}
}

func ToMessages(rows []Row) []models.Message {
	out := make([]models.Message, len(rows))
	for i := range rows {
		out[i] = ToMessage(&rows[i])
	}
	return out
}
