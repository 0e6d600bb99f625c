package models

import "time"

// ============================================================
// Page Document
// ============================================================

type PageSettings struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	FontFamily      string `json:"fontFamily"`
	Template        string `json:"template"`
}

// PageDocument: то, что уходит в Persistence Boundary целиком.
type PageDocument struct {
	Title      string       `json:"title"`
	Components []Component  `json:"components"`
	Settings   PageSettings `json:"settings"`
	// Published: флаг строки pages, в сам документ не сериализуется.
	Published bool `json:"-"`
}

type PageSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultSettings() PageSettings {
	return PageSettings{
		BackgroundColor: "#ffffff",
		TextColor:       "#1f2933",
		FontFamily:      "Inter, sans-serif",
		Template:        "blank",
	}
}

func (p PageDocument) Clone() PageDocument {
	out := PageDocument{Title: p.Title, Settings: p.Settings, Published: p.Published}
	if p.Components != nil {
		out.Components = make([]Component, len(p.Components))
		for i, c := range p.Components {
			out.Components[i] = c.Clone()
		}
	}
	return out
}
