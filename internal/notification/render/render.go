// Package render turns a notification.MessageContext into localized text.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"bloodlink/internal/notification"
)

// Message keys double as the English text.
const (
	alertKey   = "Blood Request Alert\nBlood Group: %[1]s\nLocation: %[2]s\nPatient: %[3]s\nRequest Link: %[4]s"
	closureKey = "Request for %[1]s blood at %[2]s is fulfilled. Thank you for being ready to help!"
)

var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.BrazilianPortuguese,
}

func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	entries := []struct {
		tag  language.Tag
		key  string
		text string
	}{
		{language.English, alertKey, alertKey},
		{language.English, closureKey, closureKey},
		{language.Spanish, alertKey, "Alerta de solicitud de sangre\nGrupo sanguíneo: %[1]s\nUbicación: %[2]s\nPaciente: %[3]s\nEnlace: %[4]s"},
		{language.Spanish, closureKey, "La solicitud de sangre %[1]s en %[2]s fue atendida. ¡Gracias por tu disposición a ayudar!"},
		{language.BrazilianPortuguese, alertKey, "Alerta de pedido de sangue\nTipo sanguíneo: %[1]s\nLocal: %[2]s\nPaciente: %[3]s\nLink: %[4]s"},
		{language.BrazilianPortuguese, closureKey, "O pedido de sangue %[1]s em %[2]s foi atendido. Obrigado pela disposição em ajudar!"},
	}
	for _, e := range entries {
		if err := b.SetString(e.tag, e.key, e.text); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", e.tag, err)
		}
	}
	return b, nil
}

// Renderer formats alert and closure messages in one locale.
type Renderer struct {
	printer  *message.Printer
	linkBase string
}

// New builds a renderer for locale (BCP 47, e.g. "es" or "pt-BR"); unknown
// locales fall back to English. linkBase prefixes request links.
func New(locale, linkBase string) (*Renderer, error) {
	cat, err := newCatalog()
	if err != nil {
		return nil, err
	}
	tag := language.English
	if locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		_, index, _ := language.NewMatcher(supported).Match(parsed)
		tag = supported[index]
	}
	return &Renderer{
		printer:  message.NewPrinter(tag, message.Catalog(cat)),
		linkBase: strings.TrimRight(linkBase, "/"),
	}, nil
}

// Link is the public page for a request.
func (r *Renderer) Link(msg notification.MessageContext) string {
	return r.linkBase + "/request/" + msg.RequestID.String()
}

func (r *Renderer) Render(msg notification.MessageContext) string {
	if msg.Kind == notification.KindClosure {
		return r.printer.Sprintf(closureKey, msg.BloodGroup, msg.Location)
	}
	return r.printer.Sprintf(alertKey, msg.BloodGroup, msg.Location, msg.ReceiverName, r.Link(msg))
}
