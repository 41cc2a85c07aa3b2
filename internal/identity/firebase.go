package identity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/dilse/pkg/models"
)

// DefaultFirebaseBaseURL is the Identity Toolkit REST endpoint.
const DefaultFirebaseBaseURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseConfig configures FirebaseProvider.
type FirebaseConfig struct {
	APIKey  string
	BaseURL string
	// RequestURI is echoed to the provider on federated sign in.
	RequestURI string
	Timeout    time.Duration
}

// FirebaseProvider talks to the Firebase Identity Toolkit REST API.
type FirebaseProvider struct {
	client *http.Client
	cfg    FirebaseConfig
}

// NewFirebaseProvider returns a provider for cfg. A missing API key is not an
// error here; every call then fails with CodeMisconfigured.
func NewFirebaseProvider(cfg FirebaseConfig) *FirebaseProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirebaseBaseURL
	}
	if cfg.RequestURI == "" {
		cfg.RequestURI = "http://localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &FirebaseProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type firebaseAuthResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
	ProviderID  string `json:"providerId"`
}

type firebaseErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SignInWithPassword implements Provider.
func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp firebaseAuthResponse
	err := p.call(ctx, "sign in", "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.identity("password"), nil
}

// SignUp implements Provider.
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	if displayName != "" {
		body["displayName"] = displayName
	}

	var resp firebaseAuthResponse
	if err := p.call(ctx, "sign up", "accounts:signUp", body, &resp); err != nil {
		return nil, err
	}
	if resp.DisplayName == "" {
		resp.DisplayName = displayName
	}
	return resp.identity("password"), nil
}

// SignInWithIdp implements Provider. credential is the external provider's id token.
func (p *FirebaseProvider) SignInWithIdp(ctx context.Context, providerID, credential string) (*models.Identity, error) {
	postBody := url.Values{}
	postBody.Set("id_token", credential)
	postBody.Set("providerId", providerID)

	var resp firebaseAuthResponse
	err := p.call(ctx, "federated sign in", "accounts:signInWithIdp", map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        p.cfg.RequestURI,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ProviderID == "" {
		resp.ProviderID = providerID
	}
	return resp.identity(resp.ProviderID), nil
}

// SignOut implements Provider. Identity Toolkit sessions are bearer tokens
// held by the client, so there is nothing to revoke remotely.
func (p *FirebaseProvider) SignOut(ctx context.Context, id *models.Identity) error {
	return nil
}

func (r *firebaseAuthResponse) identity(provider string) *models.Identity {
	return &models.Identity{
		UID:         r.LocalID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Provider:    provider,
		IDToken:     r.IDToken,
	}
}

func (p *FirebaseProvider) call(ctx context.Context, op, method string, body any, out any) error {
	if p.cfg.APIKey == "" {
		return &AuthError{Op: op, Code: CodeMisconfigured, Err: ErrMisconfigured}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", strings.TrimRight(p.cfg.BaseURL, "/"), method, url.QueryEscape(p.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &AuthError{Op: op, Code: CodeNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &AuthError{Op: op, Code: CodeNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var fe firebaseErrorResponse
		_ = json.Unmarshal(data, &fe)
		reason := fe.Error.Message
		if reason == "" {
			reason = resp.Status
		}
		return &AuthError{Op: op, Code: firebaseCode(reason), Err: fmt.Errorf("identity toolkit: %s", reason)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// firebaseCode maps Identity Toolkit error strings such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to a Code.
func firebaseCode(reason string) Code {
	key := reason
	if i := strings.IndexAny(key, " :"); i > 0 {
		key = key[:i]
	}
	switch key {
	case "EMAIL_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_IDP_RESPONSE", "INVALID_ID_TOKEN":
		return CodeInvalidCredential
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "USER_DISABLED":
		return CodeUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return CodeWeakPassword
	case "OPERATION_NOT_ALLOWED", "PASSWORD_LOGIN_DISABLED":
		return CodeOperationNotAllowed
	case "API_KEY_INVALID", "INVALID_API_KEY":
		return CodeMisconfigured
	}
	if strings.HasPrefix(reason, "API key not valid") {
		return CodeMisconfigured
	}
	return CodeUnknown
}
