// Package cognito implements the identity provider interface of the auth
// module on top of AWS Cognito user pools.
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"

	"budget/internal/modules/auth"
)

// CognitoAPI is the subset of the Cognito SDK the client uses. Narrowed for
// test fakes.
type CognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Config holds Cognito user pool settings.
type Config struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
}

// Client translates identity operations to Cognito calls and Cognito
// failures to the auth package's error vocabulary.
type Client struct {
	api CognitoAPI
	cfg Config
	log zerolog.Logger
}

// New creates a Cognito client for the configured user pool
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithAPI(cognitoidentityprovider.NewFromConfig(awsCfg), cfg, log), nil
}

// NewWithAPI creates a client on an existing API implementation.
func NewWithAPI(api CognitoAPI, cfg Config, log zerolog.Logger) *Client {
	return &Client{
		api: api,
		cfg: cfg,
		log: log.With().Str("client", "cognito").Logger(),
	}
}

// Register signs a new user up, using the username as the email attribute.
func (c *Client) Register(ctx context.Context, username, password string) error {
	secretHash, err := SecretHash(username, c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		return err
	}

	_, err = c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:   aws.String(c.cfg.ClientID),
		SecretHash: aws.String(secretHash),
		Username:   aws.String(username),
		Password:   aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(username)},
		},
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return auth.ErrUserAlreadyExists
		}
		return fmt.Errorf("sign up failed: %w", err)
	}
	return nil
}

// Confirm confirms a registered user with the emailed code.
func (c *Client) Confirm(ctx context.Context, username, code string) error {
	secretHash, err := SecretHash(username, c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		return err
	}

	_, err = c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.cfg.ClientID),
		SecretHash:       aws.String(secretHash),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		var mismatch *types.CodeMismatchException
		if errors.As(err, &mismatch) {
			return auth.ErrInvalidConfirmationCode
		}
		return fmt.Errorf("confirm sign up failed: %w", err)
	}
	return nil
}

// Login exchanges credentials for the user pool's access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	secretHash, err := SecretHash(username, c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		return "", err
	}

	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		ClientId: aws.String(c.cfg.ClientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME":    username,
			"PASSWORD":    password,
			"SECRET_HASH": secretHash,
		},
	})
	if err != nil {
		var (
			notFound      *types.UserNotFoundException
			notAuthorized *types.NotAuthorizedException
			notConfirmed  *types.UserNotConfirmedException
		)
		switch {
		case errors.As(err, &notFound):
			return "", auth.ErrUserNotFound
		case errors.As(err, &notAuthorized):
			return "", auth.ErrIncorrectCredentials
		case errors.As(err, &notConfirmed):
			return "", auth.ErrUserNotConfirmed
		}
		return "", fmt.Errorf("initiate auth failed: %w", err)
	}

	if out.AuthenticationResult == nil || out.AuthenticationResult.AccessToken == nil {
		return "", fmt.Errorf("initiate auth returned no access token")
	}
	return *out.AuthenticationResult.AccessToken, nil
}

// SecretHash computes the base64-encoded HMAC-SHA256 of username+clientID
// keyed with the client secret, as Cognito requires for secret-bearing app
// clients.
func SecretHash(username, clientID, clientSecret string) (string, error) {
	if clientSecret == "" {
		return "", auth.ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
