// handlers/messages.go
package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

var supportedTags = []language.Tag{
	language.English,
	language.French,
}

var tagMatcher = language.NewMatcher(supportedTags)

const (
	msgValidation     = "error.validation"
	msgNotFound       = "error.not_found"
	msgActiveSession  = "error.conflict.active_session"
	msgVersion        = "error.conflict.version"
	msgInvalidState   = "error.invalid_state"
	msgInvariant      = "error.invariant"
	msgRepository     = "error.repository"
	msgInternal       = "error.internal"
	msgUnauthorized   = "error.unauthorized"
	msgMalformedInput = "error.malformed_body"
)

func init() {
	en := language.English
	message.SetString(en, msgValidation, "The request contains invalid values.")
	message.SetString(en, msgNotFound, "The requested session or match was not found.")
	message.SetString(en, msgActiveSession, "A ranked session is already running for this game. End it before starting a new one.")
	message.SetString(en, msgVersion, "The session changed while saving. Reload it and try again.")
	message.SetString(en, msgInvalidState, "This session has ended and can no longer take matches.")
	message.SetString(en, msgInvariant, "The session points no longer add up. Nothing was saved.")
	message.SetString(en, msgRepository, "Ranked sessions are temporarily unavailable. Try again later.")
	message.SetString(en, msgInternal, "Something went wrong.")
	message.SetString(en, msgUnauthorized, "You are not signed in.")
	message.SetString(en, msgMalformedInput, "The request body could not be read.")

	fr := language.French
	message.SetString(fr, msgValidation, "La requête contient des valeurs invalides.")
	message.SetString(fr, msgNotFound, "La session ou la partie demandée est introuvable.")
	message.SetString(fr, msgActiveSession, "Une session classée est déjà en cours pour ce jeu. Terminez-la avant d'en commencer une nouvelle.")
	message.SetString(fr, msgVersion, "La session a changé pendant l'enregistrement. Rechargez-la et réessayez.")
	message.SetString(fr, msgInvalidState, "Cette session est terminée et ne peut plus recevoir de parties.")
	message.SetString(fr, msgInvariant, "Les points de la session ne concordent plus. Rien n'a été enregistré.")
	message.SetString(fr, msgRepository, "Les sessions classées sont temporairement indisponibles. Réessayez plus tard.")
	message.SetString(fr, msgInternal, "Une erreur est survenue.")
	message.SetString(fr, msgUnauthorized, "Vous n'êtes pas connecté.")
	message.SetString(fr, msgMalformedInput, "Le corps de la requête est illisible.")
}

// Localizer picks the response language of a request.
type Localizer struct {
	fallback language.Tag
}

// NewLocalizer uses defaultLocale when a request names no supported language.
func NewLocalizer(defaultLocale string) Localizer {
	if tag, ok := parseTag(defaultLocale); ok {
		return Localizer{fallback: tag}
	}
	return Localizer{fallback: language.English}
}

// Tag resolves ?lang= first, then Accept-Language.
func (l Localizer) Tag(c *fiber.Ctx) language.Tag {
	if v := strings.TrimSpace(c.Query(LangParam)); v != "" {
		if tag, ok := parseTag(v); ok {
			return tag
		}
	}
	if accept := strings.TrimSpace(c.Get(fiber.HeaderAcceptLanguage)); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := tagMatcher.Match(tags...)
			if conf != language.No {
				return supportedTags[idx]
			}
		}
	}
	return l.fallback
}

// Sprint renders key in the request language.
func (l Localizer) Sprint(c *fiber.Ctx, key string) string {
	return message.NewPrinter(l.Tag(c)).Sprintf(key)
}

func parseTag(value string) (language.Tag, bool) {
	parsed, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.Tag{}, false
	}
	base, _ := parsed.Base()
	for _, tag := range supportedTags {
		if b, _ := tag.Base(); b == base {
			return tag, true
		}
	}
	return language.Tag{}, false
}
