package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"talkbot/internal/auth"
	redisclient "talkbot/internal/redis"
	"talkbot/internal/sessioncache"
)

const (
	tokenProvider    = "token"
	passwordProvider = "password"
)

var (
	signInToken    string
	signInEmail    string
	signInPassword string
	signUp         bool
	mintUID     string
	mintEmail   string
	mintName    string
	mintTTL     time.Duration
)

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with an ID token or email and password",
	Long: `Sign in and cache the session in Redis so later commands reuse it until
the token expires.

With --email the password is read from --password, TALKBOT_PASSWORD or a
prompt, and checked by the identity provider at TALKBOT_IDENTITY_API_KEY.
--signup creates the account first. Otherwise the ID token is read from
--token or TALKBOT_ID_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw := signInToken
		if raw == "" {
			raw = cfg.IDToken
		}

		provider := tokenProvider
		var extra map[string]auth.Provider
		if strings.TrimSpace(signInEmail) != "" {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			p, err := newPasswordProvider(auth.Credentials{Email: signInEmail, Password: password}, signUp)
			if err != nil {
				return err
			}
			provider = passwordProvider
			extra = map[string]auth.Provider{passwordProvider: p}
		}

		sess, cleanup, err := openSession(raw, extra)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()
		id, err := sess.SignIn(ctx, provider)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", id.Name(), id.Email)
		return nil
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the cached session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, cleanup, err := openSession(cfg.IDToken, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()
		if err := sess.SignOut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, cleanup, err := openSession(cfg.IDToken, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()
		if _, err := sess.Restore(ctx); err != nil && !errors.Is(err, auth.ErrNotSignedIn) {
			return err
		}
		printIdentity(cmd.OutOrStdout(), sess)
		return nil
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an ID token for local development",
	Long: `Mint an HS256 ID token signed with TALKBOT_JWT_SECRET. The backend
accepts it when its /jwt-secret parameter holds the same secret. Example:

  talkbot signin --token "$(talkbot mint --uid u1 --email ada@example.com)"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("TALKBOT_JWT_SECRET is not set")
		}
		issuer, err := auth.NewIssuer(auth.IssuerConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      mintTTL,
		})
		if err != nil {
			return err
		}
		tok, err := issuer.Issue(auth.Identity{
			UID:           mintUID,
			Email:         mintEmail,
			DisplayName:   mintName,
			EmailVerified: mintEmail != "",
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
		return nil
	},
}

func init() {
	signInCmd.Flags().StringVar(&signInToken, "token", "", "ID token (default TALKBOT_ID_TOKEN)")
	signInCmd.Flags().StringVar(&signInEmail, "email", "", "Sign in with this email and a password")
	signInCmd.Flags().StringVar(&signInPassword, "password", "", "Password (default TALKBOT_PASSWORD, else prompt)")
	signInCmd.Flags().BoolVar(&signUp, "signup", false, "Create the account before signing in")
	signInCmd.MarkFlagsMutuallyExclusive("token", "email")

	mintCmd.Flags().StringVar(&mintUID, "uid", "", "User id (required)")
	mintCmd.Flags().StringVar(&mintEmail, "email", "", "Email address")
	mintCmd.Flags().StringVar(&mintName, "name", "", "Display name")
	mintCmd.Flags().DurationVar(&mintTTL, "ttl", time.Hour, "Token lifetime")
	_ = mintCmd.MarkFlagRequired("uid")
}

// openSession builds an auth session backed by the Redis session cache.
// rawToken feeds the token provider; extra registers more providers.
func openSession(rawToken string, extra map[string]auth.Provider) (*auth.Session, func(), error) {
	client, err := redisclient.NewClient(cfg.RedisAddr, &redisclient.Options{
		Password:    cfg.RedisPassword,
		DialTimeout: 5 * time.Second,
		MaxRetries:  1,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close() // nolint:errcheck // safe to ignore in cleanup
	}

	sess, err := newSession(client, cfg.SessionSlot, rawToken, extra)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sess, cleanup, nil
}

func newSession(client redisclient.Client, slot, rawToken string, extra map[string]auth.Provider) (*auth.Session, error) {
	cache, err := sessioncache.NewRedis(sessioncache.Config{Client: client, Slot: slot})
	if err != nil {
		return nil, err
	}
	providers := map[string]auth.Provider{
		tokenProvider: auth.NewTokenProvider(rawToken, nil),
	}
	for name, p := range extra {
		providers[name] = p
	}
	return auth.NewSession(auth.SessionConfig{Providers: providers, Cache: cache})
}

// newPasswordProvider checks credentials with the Identity Toolkit. The
// credentials are validated locally before any request is made.
func newPasswordProvider(c auth.Credentials, signUp bool) (auth.Provider, error) {
	if cfg.IdentityAPIKey == "" {
		return nil, errors.New("TALKBOT_IDENTITY_API_KEY is not set")
	}
	toolkit, err := auth.NewIdentityToolkit(cfg.IdentityAPIKey,
		auth.WithToolkitEndpoint(cfg.IdentityEndpoint),
		auth.WithToolkitHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}
	var authn auth.PasswordAuthenticator = toolkit
	if signUp {
		authn = toolkit.SignUp()
	}
	return auth.NewPasswordProvider(c, authn)
}

// readPassword takes --password, then TALKBOT_PASSWORD, then prompts. The
// prompt does not echo when stdin is a terminal.
func readPassword(cmd *cobra.Command) (string, error) {
	if signInPassword != "" {
		return signInPassword, nil
	}
	if cfg.Password != "" {
		return cfg.Password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ensureSignedIn restores the cached session, falling back to signing in
// with the configured token.
func ensureSignedIn(ctx context.Context, sess *auth.Session, haveToken bool) (auth.Identity, error) {
	id, err := sess.Restore(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, auth.ErrNotSignedIn) {
		return auth.Identity{}, err
	}
	if !haveToken {
		return auth.Identity{}, fmt.Errorf("%w: run `talkbot signin --token ...` first", auth.ErrNotSignedIn)
	}
	return sess.SignIn(ctx, tokenProvider)
}

func printIdentity(w io.Writer, sess *auth.Session) {
	id, ok := sess.CurrentUser()
	if !ok {
		fmt.Fprintln(w, mutedStyle.Render("Not signed in"))
		return
	}
	fmt.Fprintln(w, currentStyle.Render(id.Name()))
	fmt.Fprintf(w, "  Email: %s\n", id.Email)
	fmt.Fprintf(w, "  UID:   %s\n", id.UID)
	if tok, ok := sess.Token(); ok && !tok.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "  Token expires: %s\n", tok.ExpiresAt.Local().Format(time.RFC1123))
	}
	if p := strings.TrimSpace(id.PhotoURL); p != "" {
		fmt.Fprintf(w, "  Photo: %s\n", p)
	}
}
