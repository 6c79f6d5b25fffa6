package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fiscalgo/go-dfe-client/dfe"
	"github.com/fiscalgo/go-dfe-client/dfe/model"
	"github.com/fiscalgo/go-dfe-client/dfe/request"
	"github.com/fiscalgo/go-dfe-client/dfe/util"
)

func main() {

	if util.DebugEnabled() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	env := model.Producao
	if v, ok := os.LookupEnv("DFE_ENV"); ok {
		if err := env.UnmarshalText([]byte(v)); err != nil {
			logrus.Fatal(err)
		}
	}

	req := request.ConsultaRequest{
		CNPJEmpresa:       util.GetEnvOrFailed("DFE_CNPJ"),
		DataInicio:        util.GetEnvOrFailed("DFE_DATA_INICIO"),
		DataFim:           util.GetEnvOrFailed("DFE_DATA_FIM"),
		CertificadoBase64: util.GetEnvOrFailed("DFE_CERT_BASE64"),
		SenhaCertificado:  util.GetEnvOrFailed("DFE_CERT_PASSWORD"),
		Estado:            os.Getenv("DFE_UF"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	service := dfe.NewService(env)

	result, err := service.ConsultarNotasRecebidas(ctx, req)
	if err != nil {
		logrus.Fatalf("consultation failed: %v", err)
	}

	fmt.Println(result.Resumo)
	for _, d := range result.Detalhes {
		fmt.Println("  -", d)
	}
	for _, nota := range result.Notas {
		fmt.Printf("%s  %s  %s  %s\n", nota.Chave, nota.DataEmissao, nota.FornecedorNome, nota.ValorTotal)
	}
}
