// Package request validates and normalizes inbound consultation parameters
// before any certificate or network activity takes place.
package request

import (
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/fiscalgo/go-dfe-client/dfe/model"
)

var (
	// ErrInvalidCNPJ marks a taxpayer identifier that does not reduce to
	// exactly 14 digits after stripping punctuation.
	ErrInvalidCNPJ = errors.New("CNPJ must contain exactly 14 digits")

	// ErrInvalidDate marks a date outside the YYYY-MM-DD format.
	ErrInvalidDate = errors.New("dates must use the YYYY-MM-DD format")

	// ErrInvalidRange marks a start date after the end date.
	ErrInvalidRange = errors.New("start date must not be after end date")

	// ErrMissingField marks an absent required parameter.
	ErrMissingField = errors.New("missing required parameter")
)

const dateLayout = "2006-01-02"

var nonDigits = regexp.MustCompile(`\D+`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return len(CleanCNPJ(fl.Field().String())) == 14
	})
	return v
}

// ConsultaRequest is the raw inbound parameter set, as delivered by an
// outer transport layer.
type ConsultaRequest struct {
	CNPJEmpresa       string `validate:"required,cnpj"`
	DataInicio        string `validate:"required,datetime=2006-01-02"`
	DataFim           string `validate:"required,datetime=2006-01-02"`
	CertificadoBase64 string `validate:"required"`
	SenhaCertificado  string `validate:"required"`
	Estado            string
}

// Consulta is the cleaned, typed form of a request.
type Consulta struct {
	CNPJ   string
	Inicio time.Time
	Fim    time.Time
	UF     string
}

// CleanCNPJ strips everything but digits, preserving digit order.
func CleanCNPJ(cnpj string) string {
	return nonDigits.ReplaceAllString(cnpj, "")
}

// Normalize validates req and produces a Consulta. Unknown region codes
// fall back to the national environment.
func Normalize(req ConsultaRequest) (*Consulta, error) {

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, classify(verrs[0])
		}
		return nil, err
	}

	inicio, err := time.Parse(dateLayout, req.DataInicio)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDate, req.DataInicio)
	}
	fim, err := time.Parse(dateLayout, req.DataFim)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDate, req.DataFim)
	}
	if inicio.After(fim) {
		return nil, ErrInvalidRange
	}

	return &Consulta{
		CNPJ:   CleanCNPJ(req.CNPJEmpresa),
		Inicio: inicio,
		Fim:    fim,
		UF:     model.NormalizeUF(req.Estado),
	}, nil
}

func classify(fe validator.FieldError) error {
	switch fe.Tag() {
	case "cnpj":
		return ErrInvalidCNPJ
	case "datetime":
		return errors.Wrap(ErrInvalidDate, fe.Field())
	default:
		return errors.Wrap(ErrMissingField, fe.Field())
	}
}
