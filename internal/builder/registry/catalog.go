package registry

import (
	"encoding/json"

	"page-builder/internal/builder/models"
)

// ============================================================
// Default Catalog
// ============================================================

// Default возвращает стандартный каталог компонентов билдера.
func Default() *Registry {
	return MustNew(DefaultEntries()...)
}

func DefaultEntries() []Entry {
	return []Entry{
		// basic
		{
			Type: models.TypeText, Name: "Text", Icon: "type", Category: CategoryBasic,
			Description: "Paragraph of formatted text",
			Template:    raw(`{"content":"Write something here...","align":"left","fontSize":16}`),
		},
		{
			Type: models.TypeHeader, Name: "Header", Icon: "heading", Category: CategoryBasic,
			Description: "Page heading with optional subtitle",
			Template:    raw(`{"title":"Your Title","subtitle":"","level":1,"align":"center"}`),
		},
		{
			Type: models.TypeButton, Name: "Button", Icon: "mouse-pointer", Category: CategoryBasic,
			Description: "Call to action link",
			Template:    raw(`{"label":"Click me","url":"#","style":"primary","newTab":false}`),
		},
		{
			Type: models.TypeQuote, Name: "Quote", Icon: "quote", Category: CategoryBasic,
			Description: "Highlighted quotation",
			Template:    raw(`{"text":"A beautiful quote.","author":""}`),
		},
		{
			Type: models.TypeFooter, Name: "Footer", Icon: "align-bottom", Category: CategoryBasic,
			Description: "Closing line of the page",
			Template:    raw(`{"text":"Made with love","links":[]}`),
		},

		// media
		{
			Type: models.TypeImage, Name: "Image", Icon: "image", Category: CategoryMedia,
			Description: "Single image",
			Template:    raw(`{"url":"","alt":"","caption":"","width":100}`),
		},
		{
			Type: models.TypeGallery, Name: "Gallery", Icon: "images", Category: CategoryMedia,
			Description: "Grid of images",
			Template:    raw(`{"images":[],"layout":"grid","columns":3}`),
		},
		{
			Type: models.TypeVideo, Name: "Video", Icon: "video", Category: CategoryMedia,
			Description: "Embedded video",
			Template:    raw(`{"url":"","autoplay":false,"controls":true}`),
		},
		{
			Type: models.TypeMusic, Name: "Music", Icon: "music", Category: CategoryMedia,
			Description: "Background or embedded audio",
			Template:    raw(`{"url":"","title":"","artist":"","autoplay":false,"loop":true}`),
		},
		{
			Type: models.TypeHero, Name: "Hero", Icon: "layout", Category: CategoryMedia,
			Description: "Large banner with background image",
			Template:    raw(`{"title":"Welcome","subtitle":"","backgroundImage":"","buttonLabel":"","buttonUrl":""}`),
		},

		// layout
		{
			Type: models.TypeGrid, Name: "Grid", Icon: "columns", Category: CategoryLayout,
			Description: "Columns that hold other components",
			Template:    raw(`{"columns":2,"gap":16,"gridColumns":[]}`),
		},

		// interactive
		{
			Type: models.TypeCountdown, Name: "Countdown", Icon: "clock", Category: CategoryInteractive,
			Description: "Timer counting down to a date",
			Template:    raw(`{"title":"Counting down","targetDate":"","showSeconds":true}`),
		},
		{
			Type: models.TypeTimeline, Name: "Timeline", Icon: "git-commit", Category: CategoryInteractive,
			Description: "Ordered list of events",
			Template:    raw(`{"events":[{"date":"","title":"First event","description":""}]}`),
		},
		{
			Type: models.TypeMessage, Name: "Message", Icon: "mail", Category: CategoryInteractive,
			Description: "Personal message card",
			Template:    raw(`{"from":"","to":"","message":"Dear friend,","style":"letter"}`),
		},

		// effects
		{
			Type: models.TypeSnowfall, Name: "Snowfall", Icon: "cloud-snow", Category: CategoryEffects, Effect: true,
			Description: "Falling snow over the whole page",
			Template:    raw(`{"enabled":true,"intensity":50,"color":"#ffffff"}`),
		},
		{
			Type: models.TypeHearts, Name: "Hearts", Icon: "heart", Category: CategoryEffects, Effect: true,
			Description: "Floating hearts",
			Template:    raw(`{"enabled":true,"intensity":30,"color":"#ff4d6d"}`),
		},
		{
			Type: models.TypeConfetti, Name: "Confetti", Icon: "party-popper", Category: CategoryEffects, Effect: true,
			Description: "Confetti burst",
			Template:    raw(`{"enabled":true,"intensity":60,"colors":["#f94144","#f9c74f","#43aa8b"]}`),
		},
		{
			Type: models.TypeSparkles, Name: "Sparkles", Icon: "sparkles", Category: CategoryEffects, Effect: true,
			Description: "Twinkling sparkles",
			Template:    raw(`{"enabled":true,"intensity":40,"color":"#ffd166"}`),
		},
	}
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}
