// Package directory builds the participant profile lookup table from a vCard address book.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/engine"
)

const (
	paramEncoding = "ENCODING"
	paramType     = "TYPE"
	dataURIFormat = "data:image/%s;base64,%s"
)

// LoadProfiles decodes every card of r into engine.Profiles keyed by user id.
//
// The user id comes from UID (a "urn:uuid:" prefix is stripped). The display
// name prefers NICKNAME, then FN, then the structured N. Cards that fail to
// decode or carry no UID are skipped; a later card with the same id wins.
func LoadProfiles(ctx context.Context, r io.Reader) (engine.Profiles, error) {
	log := slog.With(slog.String(config.LogKeyComponent, config.CompDirectory))

	profiles := make(engine.Profiles)
	decoder := vcard.NewDecoder(r)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep going: one broken card should not hide the others.
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			continue
		}

		id := userID(card)
		if id == "" {
			log.Debug(config.MsgSkippedProfile, config.LogKeyValue, card.Value(vcard.FieldFormattedName))
			continue
		}
		profiles[id] = engine.Profile{
			Username:   displayName(card),
			ProfilePic: photo(card),
		}
	}

	log.Info(config.MsgProfilesLoaded, config.LogKeyCount, len(profiles))
	return profiles, nil
}

// LoadProfilesFile is LoadProfiles over a file on disk.
func LoadProfilesFile(ctx context.Context, path string) (engine.Profiles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrProfilesOpen, err)
	}
	defer func() { _ = f.Close() }()

	profiles, err := LoadProfiles(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	return profiles, nil
}

func userID(card vcard.Card) string {
	uid := strings.TrimSpace(card.Value(config.VCardUID))
	if len(uid) >= len(config.VCardURNUUID) && strings.EqualFold(uid[:len(config.VCardURNUUID)], config.VCardURNUUID) {
		uid = uid[len(config.VCardURNUUID):]
	}
	return uid
}

// displayName: NICKNAME > FN > N.
func displayName(card vcard.Card) string {
	if nick := card.Value(config.VCardNickname); nick != "" {
		// NICKNAME may be a comma separated list.
		first, _, _ := strings.Cut(nick, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if fn := strings.TrimSpace(card.Value(config.VCardFN)); fn != "" {
		return fn
	}
	if n := card.Name(); n != nil {
		return strings.TrimSpace(strings.Join(strings.Fields(n.GivenName+" "+n.FamilyName), " "))
	}
	return ""
}

// photo returns PHOTO as a URL. Inline vCard 3 photos become data URIs.
func photo(card vcard.Card) string {
	f := card.Get(config.VCardPhoto)
	if f == nil || f.Value == "" {
		return ""
	}
	enc := strings.ToLower(f.Params.Get(paramEncoding))
	if enc == "b" || enc == "base64" {
		kind := strings.ToLower(f.Params.Get(paramType))
		if kind == "" {
			kind = "jpeg"
		}
		return fmt.Sprintf(dataURIFormat, kind, f.Value)
	}
	return f.Value
}
