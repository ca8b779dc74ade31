package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

// breachDateLayout is the calendar date format used for persisted breach dates.
const breachDateLayout = "2006-01-02"

// breachStateDoc is the persisted form of model.BreachState:
// {checked, breached, checkedAt, breachCount?, breaches?}.
type breachStateDoc struct {
	Checked     bool        `json:"checked"`
	Breached    bool        `json:"breached"`
	CheckedAt   time.Time   `json:"checkedAt"`
	BreachCount int         `json:"breachCount,omitempty"`
	Breaches    []breachDoc `json:"breaches,omitempty"`
}

type breachDoc struct {
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	Domain        string   `json:"domain"`
	Date          string   `json:"date"`
	DataTypes     []string `json:"dataTypes"`
	Description   string   `json:"description,omitempty"`
	AffectedCount int64    `json:"affectedCount,omitempty"`
}

// encodeBreachState serializes a checked state. Unchecked states are stored
// as NULL and never reach the encoder.
func encodeBreachState(state model.BreachState) (string, error) {
	if !state.Checked() {
		return "", fmt.Errorf("encode breach state: state is unchecked")
	}

	doc := breachStateDoc{
		Checked:   true,
		Breached:  state.Breached(),
		CheckedAt: state.CheckedAt.UTC(),
	}
	if state.Breached() {
		doc.BreachCount = state.BreachCount()
		doc.Breaches = make([]breachDoc, 0, len(state.Breaches))
		for _, b := range model.SortBreachesNewestFirst(state.Breaches) {
			dataTypes := b.DataTypes
			if dataTypes == nil {
				dataTypes = []string{}
			}
			var date string
			if !b.Date.IsZero() {
				date = b.Date.UTC().Format(breachDateLayout)
			}
			doc.Breaches = append(doc.Breaches, breachDoc{
				Name:          b.Name,
				Title:         b.Title,
				Domain:        b.Domain,
				Date:          date,
				DataTypes:     dataTypes,
				Description:   b.Description,
				AffectedCount: b.AffectedCount,
			})
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode breach state: %w", err)
	}
	return string(data), nil
}

// decodeBreachState parses a persisted state. An empty string is Unchecked.
func decodeBreachState(raw string) (model.BreachState, error) {
	if raw == "" {
		return model.UncheckedState(), nil
	}

	var doc breachStateDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return model.BreachState{}, fmt.Errorf("decode breach state: %w", err)
	}

	if !doc.Checked {
		return model.UncheckedState(), nil
	}
	if !doc.Breached {
		return model.SafeState(doc.CheckedAt), nil
	}

	breaches := make([]model.Breach, 0, len(doc.Breaches))
	for _, bd := range doc.Breaches {
		b := model.Breach{
			Name:          bd.Name,
			Title:         bd.Title,
			Domain:        bd.Domain,
			DataTypes:     bd.DataTypes,
			Description:   bd.Description,
			AffectedCount: bd.AffectedCount,
		}
		if bd.Date != "" {
			d, err := time.Parse(breachDateLayout, bd.Date)
			if err != nil {
				return model.BreachState{}, fmt.Errorf("decode breach %q date: %w", bd.Name, err)
			}
			b.Date = d
		}
		breaches = append(breaches, b)
	}

	return model.BreachState{
		Status:    model.BreachBreached,
		CheckedAt: doc.CheckedAt.UTC(),
		Breaches:  breaches,
	}, nil
}
