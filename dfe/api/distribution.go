package api

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/fiscalgo/go-dfe-client/dfe/decode"
	"github.com/fiscalgo/go-dfe-client/dfe/extract"
	"github.com/fiscalgo/go-dfe-client/dfe/model"
	"github.com/fiscalgo/go-dfe-client/dfe/tpl"
	"github.com/fiscalgo/go-dfe-client/dfe/util"
)

// Response status codes of the distribution service.
const (
	cStatDocumentsFound = 138
	cStatNoDocuments    = 137
)

// DefaultLookupBound limits concurrent per-key lookups in the second phase.
// The service rate-limits per certificate, so fan-out must stay small; a
// bound of 1 makes the phase fully sequential.
const DefaultLookupBound = 4

// DistributionService drives the NSU pagination protocol: successive
// distribution-of-interest requests, cursor advance, batch decoding and
// extraction, until the service reports no more data.
type DistributionService interface {
	FetchAvailable(ctx context.Context, cursor *model.DistributionCursor) (*DistributionResult, error)
}

// DistributionResult is the accumulator of one session. When FetchAvailable
// also returns an error the result still holds everything gathered before
// the failure; completed work is never discarded.
type DistributionResult struct {
	Records   []model.InvoiceRecord
	Consulted int
	Errored   int
}

type distribution struct {
	client      Client
	endpoints   model.Endpoints
	fetch       FetchService
	lookupBound int64
}

// NewDistributionService prepares a single-phase session: summary documents
// stay summaries, no per-key lookups are issued.
func NewDistributionService(client Client, endpoints model.Endpoints) DistributionService {
	return &distribution{client: client, endpoints: endpoints}
}

// NewDistributionServiceWithFetch prepares a two-phase session that resolves
// summary documents through fetch, at most lookupBound lookups in flight.
func NewDistributionServiceWithFetch(client Client, endpoints model.Endpoints, fetch FetchService, lookupBound int64) DistributionService {
	if lookupBound <= 0 {
		lookupBound = DefaultLookupBound
	}
	return &distribution{client: client, endpoints: endpoints, fetch: fetch, lookupBound: lookupBound}
}

func (d *distribution) FetchAvailable(ctx context.Context, cursor *model.DistributionCursor) (*DistributionResult, error) {

	urls := d.endpoints.Resolve(cursor.UF)
	result := &DistributionResult{}
	var summaries []model.InvoiceRecord

	for {
		before := cursor.UltNSU

		body, err := util.MergeTemplate(&tpl.DistDFeInteresseRequest, model.DistDFeIntDTO{
			TpAmb:    cursor.Ambiente.TpAmb(),
			CUFAutor: model.AuthorizerCode(cursor.UF),
			CNPJ:     cursor.CNPJ,
			UltNSU:   cursor.FormattedNSU(),
		})
		if err != nil {
			return result, errors.Wrap(err, "render distribution request")
		}

		resp, err := d.client.PostSOAP(ctx, urls.Distribution, tpl.ActionDistDFeInteresse, body)
		if err != nil {
			return result, errors.Wrap(err, "distribution request")
		}

		page, err := parseRetDistDFeInt(resp)
		if err != nil {
			return result, err
		}

		logger.WithFields(logrus.Fields{
			"cStat":   page.cStat,
			"ultNSU":  page.ultNSU,
			"maxNSU":  page.maxNSU,
			"entries": len(page.entries),
		}).Debug("distribution page")

		if page.cStat == cStatNoDocuments {
			break
		}
		if page.cStat != cStatDocumentsFound {
			return result, &ProtocolError{CStat: page.cStat, Motivo: page.motivo}
		}

		for _, entry := range page.entries {
			result.Consulted++
			cursor.Advance(entry.nsu)

			xmlText, err := decode.DocZip(entry.payload)
			if err != nil {
				logger.WithField("nsu", entry.nsu).WithError(err).Warn("batch entry could not be decoded")
				result.Errored++
				continue
			}

			rec := extract.Invoice(string(xmlText), "")
			if rec == nil {
				result.Errored++
				continue
			}

			if d.fetch != nil && isSummarySchema(entry.schema) {
				summaries = append(summaries, *rec)
			} else {
				result.Records = append(result.Records, *rec)
			}
		}

		cursor.Advance(page.ultNSU)

		if page.ultNSU >= page.maxNSU || len(page.entries) == 0 {
			break
		}
		if cursor.UltNSU == before {
			// Service did not move the sequence; bail out instead of
			// re-requesting the same page forever.
			logger.WithField("ultNSU", before).Warn("sequence number did not advance, stopping pagination")
			break
		}
	}

	if len(summaries) > 0 {
		d.resolveSummaries(ctx, cursor, summaries, result)
	}

	return result, nil
}

// resolveSummaries runs the second lookup phase. Each key is independent: a
// failed lookup keeps the summary-derived record and bumps the error
// counter, it never aborts the remaining keys. The accumulator is mutated
// behind a single mutex.
func (d *distribution) resolveSummaries(ctx context.Context, cursor *model.DistributionCursor, summaries []model.InvoiceRecord, result *DistributionResult) {

	sem := semaphore.NewWeighted(d.lookupBound)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, summary := range summaries {
		summary := summary

		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errored++
			result.Records = append(result.Records, summary)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			full, err := d.fetch.ByAccessKey(ctx, cursor, summary.Chave)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WithField("chave", summary.Chave).WithError(err).Warn("per-key lookup failed, keeping summary record")
				result.Errored++
				result.Records = append(result.Records, summary)
				return
			}
			result.Records = append(result.Records, *full)
		}()
	}

	wg.Wait()
}

type docZipEntry struct {
	nsu     uint64
	schema  string
	payload string
}

type distPage struct {
	cStat   int
	motivo  string
	ultNSU  uint64
	maxNSU  uint64
	entries []docZipEntry
}

func parseRetDistDFeInt(body []byte) (*distPage, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, errors.Wrap(err, "response is not XML")
	}

	ret := doc.FindElement("//retDistDFeInt")
	if ret == nil {
		return nil, errors.New("response envelope has no retDistDFeInt element")
	}

	page := &distPage{
		cStat:  atoi(elementText(ret, "cStat")),
		motivo: elementText(ret, "xMotivo"),
		ultNSU: parseNSU(elementText(ret, "ultNSU")),
		maxNSU: parseNSU(elementText(ret, "maxNSU")),
	}

	for _, dz := range ret.FindElements(".//docZip") {
		page.entries = append(page.entries, docZipEntry{
			nsu:     parseNSU(dz.SelectAttrValue("NSU", "")),
			schema:  dz.SelectAttrValue("schema", ""),
			payload: dz.Text(),
		})
	}

	return page, nil
}

func elementText(root *etree.Element, tag string) string {
	if el := root.FindElement(".//" + tag); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseNSU(s string) uint64 {
	v, _ := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return v
}

func isSummarySchema(schema string) bool {
	return strings.Contains(schema, "resNFe")
}
