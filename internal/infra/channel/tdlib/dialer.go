// Package tdlib implements channel.Dialer over TDLib. It needs libtdjson at
// link time, so only the binaries import it.
package tdlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zelenin/go-tdlib/client"

	"channel-digest/internal/infra/channel"
)

// Credentials authenticate the user account that reads the channel.
type Credentials struct {
	APIID       int32
	APIHash     string
	PhoneNumber string
	PhoneCode   string
	Password    string
}

// CredentialsFromEnv reads TG_API_ID, TG_API_HASH, TG_PHONE_NUMBER,
// TG_PHONE_CODE and TG_PASSWORD.
func CredentialsFromEnv() (Credentials, error) {
	raw := os.Getenv("TG_API_ID")
	if raw == "" {
		return Credentials{}, errors.New("TG_API_ID not set")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return Credentials{}, fmt.Errorf("TG_API_ID: %w", err)
	}
	creds := Credentials{
		APIID:       int32(id),
		APIHash:     os.Getenv("TG_API_HASH"),
		PhoneNumber: os.Getenv("TG_PHONE_NUMBER"),
		PhoneCode:   os.Getenv("TG_PHONE_CODE"),
		Password:    os.Getenv("TG_PASSWORD"),
	}
	if creds.APIHash == "" {
		return Credentials{}, errors.New("TG_API_HASH not set")
	}
	return creds, nil
}

// Dialer opens a TDLib session and resolves the configured channel.
type Dialer struct {
	Credentials Credentials
	// Username is the public channel username without the leading @.
	Username string
	// StateDir holds the TDLib database so that authorization survives restarts.
	StateDir    string
	DialTimeout time.Duration
}

// Dial authorizes (reusing the stored session when present) and resolves
// the channel chat id.
func (d *Dialer) Dial(ctx context.Context) (channel.Conn, error) {
	dbDir := filepath.Join(d.StateDir, "database")
	filesDir := filepath.Join(d.StateDir, "files")
	for _, dir := range []string{dbDir, filesDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create tdlib dir: %w", err)
		}
	}

	authorizer := client.ClientAuthorizer()
	authorizer.TdlibParameters <- &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     false,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               d.Credentials.APIID,
		ApiHash:             d.Credentials.APIHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}

	creds := d.Credentials
	go func() {
		for state := range authorizer.State {
			switch state.AuthorizationStateType() {
			case client.TypeAuthorizationStateWaitPhoneNumber:
				authorizer.PhoneNumber <- creds.PhoneNumber
			case client.TypeAuthorizationStateWaitCode:
				authorizer.Code <- creds.PhoneCode
			case client.TypeAuthorizationStateWaitPassword:
				authorizer.Password <- creds.Password
			case client.TypeAuthorizationStateReady:
				return
			}
		}
	}()

	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	type result struct {
		c   *client.Client
		err error
	}
	ready := make(chan result, 1)
	go func() {
		c, err := client.NewClient(authorizer)
		ready <- result{c: c, err: err}
	}()

	var tdc *client.Client
	select {
	case r := <-ready:
		if r.err != nil {
			return nil, fmt.Errorf("initialize tdlib client: %w", r.err)
		}
		tdc = r.c
	case <-time.After(timeout):
		return nil, errors.New("timeout initializing tdlib client")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	_, _ = tdc.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{NewVerbosityLevel: 1})

	chat, err := tdc.SearchPublicChat(&client.SearchPublicChatRequest{Username: d.Username})
	if err != nil {
		_, _ = tdc.Close()
		return nil, fmt.Errorf("resolve channel @%s: %w", d.Username, classify(err))
	}

	slog.Info("tdlib channel resolved",
		slog.String("username", d.Username),
		slog.Int64("chat_id", chat.Id),
		slog.String("title", chat.Title))

	return &conn{client: tdc, chatID: chat.Id}, nil
}

var _ channel.Dialer = (*Dialer)(nil)
