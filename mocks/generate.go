package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-histdata/pkg/provider Provider
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-histdata/pkg/histcache Store
