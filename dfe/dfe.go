// Package dfe is the top-level client for the SEFAZ document-distribution
// services: load a certificate, walk the NSU sequence, decode and extract
// every available fiscal document, and aggregate the outcome.
package dfe

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fiscalgo/go-dfe-client/dfe/aggregate"
	"github.com/fiscalgo/go-dfe-client/dfe/api"
	"github.com/fiscalgo/go-dfe-client/dfe/cert"
	"github.com/fiscalgo/go-dfe-client/dfe/model"
	"github.com/fiscalgo/go-dfe-client/dfe/request"
)

var logger = logrus.WithField("component", "dfe")

// Service runs complete consultations. One Service may serve many calls;
// every call builds its own credential, transport and cursor.
type Service struct {
	env         model.Environment
	endpoints   model.Endpoints
	lookupBound int64
	clientOpts  []api.Option
}

type Option func(*Service)

// WithEndpoints substitutes the service address table, mainly for tests.
func WithEndpoints(eps model.Endpoints) Option {
	return func(s *Service) { s.endpoints = eps }
}

// WithLookupBound caps concurrent per-key lookups; 1 keeps the second
// phase sequential.
func WithLookupBound(n int64) Option {
	return func(s *Service) { s.lookupBound = n }
}

func WithClientOptions(opts ...api.Option) Option {
	return func(s *Service) { s.clientOpts = opts }
}

func NewService(env model.Environment, opts ...Option) *Service {
	s := &Service{
		env:         env,
		endpoints:   model.DefaultEndpoints(env),
		lookupBound: api.DefaultLookupBound,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConsultarNotasRecebidas is the full flow: validate the request, unlock
// the certificate container, enumerate and retrieve every document the
// distribution service holds for the taxpayer, and filter the records to
// the requested period.
//
// Input-validation and credential errors return before any network
// activity. A session that fails mid-way still returns the partial
// QueryResult gathered so far, flagged unsuccessful.
func (s *Service) ConsultarNotasRecebidas(ctx context.Context, req request.ConsultaRequest) (*model.QueryResult, error) {

	consulta, err := request.Normalize(req)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"cnpj":    consulta.CNPJ,
		"uf":      consulta.UF,
		"periodo": fmt.Sprintf("%s a %s", consulta.Inicio.Format("2006-01-02"), consulta.Fim.Format("2006-01-02")),
	}).Info("starting distribution consultation")

	cred, err := cert.LoadBase64(req.CertificadoBase64, req.SenhaCertificado)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cred.Close() }()

	client := api.New(&cred.TLSCertificate, s.clientOpts...)
	fetchService := api.NewFetchService(client, s.endpoints)
	distribution := api.NewDistributionServiceWithFetch(client, s.endpoints, fetchService, s.lookupBound)

	cursor := &model.DistributionCursor{
		CNPJ:     consulta.CNPJ,
		UF:       consulta.UF,
		Ambiente: s.env,
	}

	session, sessionErr := distribution.FetchAvailable(ctx, cursor)

	result := aggregate.Aggregate(session.Records, session.Consulted, session.Errored, consulta.Inicio, consulta.Fim)
	if sessionErr != nil {
		logger.WithError(sessionErr).Error("distribution session aborted, returning partial result")
		result.Success = false
		result.Detalhes = append(result.Detalhes, fmt.Sprintf("Falha na consulta: %v", sessionErr))
	}

	return &result, nil
}
