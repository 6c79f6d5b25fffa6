package api

import (
	"context"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"

	"github.com/fiscalgo/go-dfe-client/dfe/extract"
	"github.com/fiscalgo/go-dfe-client/dfe/model"
	"github.com/fiscalgo/go-dfe-client/dfe/tpl"
	"github.com/fiscalgo/go-dfe-client/dfe/util"
)

// cStatAuthorized is the consultation status of an authorized document.
const cStatAuthorized = 100

// FetchService retrieves the full document for an access key that the
// enumeration phase only summarized. Each lookup is an independent request.
type FetchService interface {
	ByAccessKey(ctx context.Context, cursor *model.DistributionCursor, chave string) (*model.InvoiceRecord, error)
}

type fetch struct {
	client    Client
	endpoints model.Endpoints
}

func NewFetchService(client Client, endpoints model.Endpoints) FetchService {
	return &fetch{client: client, endpoints: endpoints}
}

func (f *fetch) ByAccessKey(ctx context.Context, cursor *model.DistributionCursor, chave string) (*model.InvoiceRecord, error) {

	logger.WithField("chave", chave).Debug("fetching document by access key")

	body, err := util.MergeTemplate(&tpl.ConsSitNFeRequest, model.ConsSitNFeDTO{
		TpAmb: cursor.Ambiente.TpAmb(),
		ChNFe: chave,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render consultation request")
	}

	urls := f.endpoints.Resolve(cursor.UF)
	resp, err := f.client.PostSOAP(ctx, urls.Consultation, tpl.ActionConsultaNF, body)
	if err != nil {
		return nil, errors.Wrap(err, "consultation request")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(resp); err != nil {
		return nil, errors.Wrap(err, "consultation response is not XML")
	}

	ret := doc.FindElement("//retConsSitNFe")
	if ret == nil {
		return nil, errors.New("consultation response has no retConsSitNFe element")
	}

	if cStat := atoi(elementText(ret, "cStat")); cStat != cStatAuthorized {
		return nil, &ProtocolError{CStat: cStat, Motivo: elementText(ret, "xMotivo")}
	}

	inner := etree.NewDocument()
	inner.SetRoot(ret.Copy())
	innerXML, err := inner.WriteToString()
	if err != nil {
		return nil, errors.Wrap(err, "serialize consultation result")
	}

	rec := extract.Invoice(innerXML, chave)
	if rec == nil {
		return nil, errors.Errorf("document %s could not be extracted from consultation result", chave)
	}
	return rec, nil
}
