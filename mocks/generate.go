package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/sabarim/intradata/internal/historical Provider
//go:generate mockgen -destination=./mock_saver.go -package=mocks github.com/sabarim/intradata/internal/schedule Saver
