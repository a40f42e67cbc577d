package directory_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/directory"
	"github.com/tartampluch/go-huddle/internal/engine"
)

const addressBook = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:urn:uuid:u-1\r\n" +
	"FN:Ada Lovelace\r\n" +
	"NICKNAME:ada,countess\r\n" +
	"PHOTO:https://img.example.com/ada.png\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:3.0\r\n" +
	"UID:u-2\r\n" +
	"N:Hopper;Grace;;;\r\n" +
	"PHOTO;ENCODING=b;TYPE=PNG:iVBORw0KGgo=\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"FN:No Identifier\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:u-3\r\n" +
	"FN:Alan Turing\r\n" +
	"END:VCARD\r\n"

func TestLoadProfiles(t *testing.T) {
	profiles, err := directory.LoadProfiles(context.Background(), strings.NewReader(addressBook))
	require.NoError(t, err)

	assert.Equal(t, engine.Profiles{
		"u-1": {Username: "ada", ProfilePic: "https://img.example.com/ada.png"},
		"u-2": {Username: "Grace Hopper", ProfilePic: "data:image/png;base64,iVBORw0KGgo="},
		"u-3": {Username: "Alan Turing"},
	}, profiles)
}

func TestLoadProfiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := directory.LoadProfiles(ctx, strings.NewReader(addressBook))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadProfiles_Empty(t *testing.T) {
	profiles, err := directory.LoadProfiles(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.vcf")
	require.NoError(t, os.WriteFile(path, []byte(addressBook), config.FilePermUserRW))

	profiles, err := directory.LoadProfilesFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)

	_, err = directory.LoadProfilesFile(context.Background(), filepath.Join(t.TempDir(), "missing.vcf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrProfilesOpen)
}
