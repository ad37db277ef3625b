// Package mocks provides gomock implementations of the ports interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	enhancer := mocks.NewMockTokenEnhancer(ctrl)
//	enhancer.EXPECT().Enhance(gomock.Any(), gomock.Any()).Return(tok, nil)
package mocks

// TokenEnhancer: Enhance
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_enhancer_mock.go github.com/avisitor/idp-client/internal/ports TokenEnhancer

// UserDirectory: LookupUser
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_directory_mock.go github.com/avisitor/idp-client/internal/ports UserDirectory

// TokenVerifier: Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_verifier_mock.go github.com/avisitor/idp-client/internal/ports TokenVerifier

// IDPClient: ExchangeCode, Register, RequestPasswordReset, ValidateToken, VerifyEmail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=idp_client_mock.go github.com/avisitor/idp-client/internal/ports IDPClient

// SessionStore: Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/avisitor/idp-client/internal/ports SessionStore
