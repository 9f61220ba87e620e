// Package mocks provides gomock implementations of the session core's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	exchanger := mocks.NewMockCredentialExchanger(ctrl)
//	exchanger.EXPECT().ExchangeSSOCode(gomock.Any(), "xyz").Return(exchange, nil)
package mocks

// Generate mocks for the identity-service ports:
// CredentialExchanger (Login, SSOLoginURL, ExchangeSSOCode) and RoleHintLookup (LookupRole).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/mmk-console/internal/ports CredentialExchanger,RoleHintLookup
