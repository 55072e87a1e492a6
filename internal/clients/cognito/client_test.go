package cognito

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/modules/auth"
)

// fakeAPI scripts the Cognito responses.
type fakeAPI struct {
	signUpErr  error
	confirmErr error
	authErr    error
	authOut    *cognitoidentityprovider.InitiateAuthOutput

	lastSignUp  *cognitoidentityprovider.SignUpInput
	lastConfirm *cognitoidentityprovider.ConfirmSignUpInput
	lastAuth    *cognitoidentityprovider.InitiateAuthInput
}

func (f *fakeAPI) SignUp(_ context.Context, params *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	f.lastSignUp = params
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &cognitoidentityprovider.SignUpOutput{}, nil
}

func (f *fakeAPI) ConfirmSignUp(_ context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	f.lastConfirm = params
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (f *fakeAPI) InitiateAuth(_ context.Context, params *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.lastAuth = params
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.authOut, nil
}

func testConfig() Config {
	return Config{
		Region:       "eu-central-1",
		UserPoolID:   "eu-central-1_test",
		ClientID:     "client123",
		ClientSecret: "test-secret",
	}
}

func TestSecretHash_KnownVectors(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"alice@example.com", "qi+COA8ORs7WEylB3giI1lWERh4EahGpNaCrQ6BS13A="},
		{"bob@example.com", "h5jK40mV+bvVcT+1X8qANPqI7sVU0TeuHBb1QClboHI="},
	}

	for _, tt := range tests {
		got, err := SecretHash(tt.username, "client123", "test-secret")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.username)
	}
}

func TestSecretHash_MissingSecret(t *testing.T) {
	_, err := SecretHash("alice@example.com", "client123", "")
	assert.ErrorIs(t, err, auth.ErrMissingSecret)
}

func TestRegister_Success(t *testing.T) {
	api := &fakeAPI{}
	client := NewWithAPI(api, testConfig(), zerolog.Nop())

	err := client.Register(context.Background(), "alice@example.com", "s3cret!")
	require.NoError(t, err)

	require.NotNil(t, api.lastSignUp)
	assert.Equal(t, "client123", *api.lastSignUp.ClientId)
	assert.Equal(t, "alice@example.com", *api.lastSignUp.Username)
	assert.Equal(t, "s3cret!", *api.lastSignUp.Password)
	assert.Equal(t, "qi+COA8ORs7WEylB3giI1lWERh4EahGpNaCrQ6BS13A=", *api.lastSignUp.SecretHash)

	// Username doubles as the email attribute
	require.Len(t, api.lastSignUp.UserAttributes, 1)
	assert.Equal(t, "email", *api.lastSignUp.UserAttributes[0].Name)
	assert.Equal(t, "alice@example.com", *api.lastSignUp.UserAttributes[0].Value)
}

func TestRegister_UserExists(t *testing.T) {
	api := &fakeAPI{signUpErr: &types.UsernameExistsException{}}
	client := NewWithAPI(api, testConfig(), zerolog.Nop())

	err := client.Register(context.Background(), "alice@example.com", "s3cret!")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestRegister_MissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.ClientSecret = ""
	client := NewWithAPI(&fakeAPI{}, cfg, zerolog.Nop())

	err := client.Register(context.Background(), "alice@example.com", "s3cret!")
	assert.ErrorIs(t, err, auth.ErrMissingSecret)
}

func TestConfirm_Success(t *testing.T) {
	api := &fakeAPI{}
	client := NewWithAPI(api, testConfig(), zerolog.Nop())

	err := client.Confirm(context.Background(), "alice@example.com", "123456")
	require.NoError(t, err)

	require.NotNil(t, api.lastConfirm)
	assert.Equal(t, "123456", *api.lastConfirm.ConfirmationCode)
}

func TestConfirm_CodeMismatch(t *testing.T) {
	api := &fakeAPI{confirmErr: &types.CodeMismatchException{}}
	client := NewWithAPI(api, testConfig(), zerolog.Nop())

	err := client.Confirm(context.Background(), "alice@example.com", "000000")
	assert.ErrorIs(t, err, auth.ErrInvalidConfirmationCode)
}

func TestLogin_Success(t *testing.T) {
	api := &fakeAPI{
		authOut: &cognitoidentityprovider.InitiateAuthOutput{
			AuthenticationResult: &types.AuthenticationResultType{
				AccessToken: aws.String("access-token"),
			},
		},
	}
	client := NewWithAPI(api, testConfig(), zerolog.Nop())

	token, err := client.Login(context.Background(), "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token)

	require.NotNil(t, api.lastAuth)
	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, api.lastAuth.AuthFlow)
	assert.Equal(t, "alice@example.com", api.lastAuth.AuthParameters["USERNAME"])
	assert.Equal(t, "s3cret!", api.lastAuth.AuthParameters["PASSWORD"])
	assert.Equal(t, "qi+COA8ORs7WEylB3giI1lWERh4EahGpNaCrQ6BS13A=", api.lastAuth.AuthParameters["SECRET_HASH"])
}

func TestLogin_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name    string
		apiErr  error
		wantErr error
	}{
		{"user not found", &types.UserNotFoundException{}, auth.ErrUserNotFound},
		{"not authorized", &types.NotAuthorizedException{}, auth.ErrIncorrectCredentials},
		{"not confirmed", &types.UserNotConfirmedException{}, auth.ErrUserNotConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewWithAPI(&fakeAPI{authErr: tt.apiErr}, testConfig(), zerolog.Nop())

			_, err := client.Login(context.Background(), "alice@example.com", "s3cret!")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_UnknownFailureIsWrapped(t *testing.T) {
	cause := errors.New("throttled")
	client := NewWithAPI(&fakeAPI{authErr: cause}, testConfig(), zerolog.Nop())

	_, err := client.Login(context.Background(), "alice@example.com", "s3cret!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrIncorrectCredentials)
	assert.ErrorIs(t, err, cause)
}

func TestLogin_NoTokenInResponse(t *testing.T) {
	client := NewWithAPI(&fakeAPI{authOut: &cognitoidentityprovider.InitiateAuthOutput{}}, testConfig(), zerolog.Nop())

	_, err := client.Login(context.Background(), "alice@example.com", "s3cret!")
	assert.Error(t, err)
}
