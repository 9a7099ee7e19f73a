package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postkeeper/internal/client/client"
	"github.com/dmitrijs2005/postkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email and password and creates the account on
// the server. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.writer())
	if err != nil {
		return err
	}

	password, err := getPassword(a.writer())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		fmt.Fprintf(a.writer(), "Registration failed: %v\n", err)
		return err
	}

	fmt.Fprintln(a.writer(), "Success!")
	return nil
}

// Login prompts for credentials and tries the server first. If the server
// is unavailable it falls back to the cached offline verifier.
//
// On success the session is marked logged in and the mode is set to
// ModeOnline or ModeOffline. If both fail the mode becomes ModeDisabled.
// A nil error does not imply ModeOnline; inspect App.Mode.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.writer())
	if err != nil {
		return err
	}

	password, err := getPassword(a.writer())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var mode Mode

	err = a.authService.OnlineLogin(ctx, userName, password)
	switch {
	case err == nil:
		fmt.Fprintln(a.writer(), "Login successful")
		mode = ModeOnline
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.writer(), "Server unavailable, trying offline login...")
		if err = a.authService.OfflineLogin(ctx, userName, password); err != nil {
			fmt.Fprintf(a.writer(), "Offline login unsuccessful: %v\n", err)
			mode = ModeDisabled
		} else {
			fmt.Fprintln(a.writer(), "Offline login successful")
			mode = ModeOffline
		}
	default:
		fmt.Fprintf(a.writer(), "Login unsuccessful: %v\n", err)
		return nil
	}

	a.setSession(userName, err == nil)
	a.setMode(mode)

	if mode == ModeOnline {
		a.autoReconcile(ctx)
	}
	return nil
}

// Logout clears locally cached auth data. Posts stay on the device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.ClearOfflineData(ctx); err != nil {
		return err
	}
	a.setSession("", false)
	fmt.Fprintln(a.writer(), "Logged out")
	return nil
}
