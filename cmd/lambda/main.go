package main

import (
	"context"
	"os"

	"github.com/ammiranda/forest_service/internal/bootstrap"
	"github.com/ammiranda/forest_service/internal/lambda"

	awslambda "github.com/aws/aws-lambda-go/lambda"
)

func main() {
	ctx := context.Background()

	provider, err := bootstrap.NewProvider(ctx, os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	logger := bootstrap.NewLogger(provider.GetEnvironment(), os.Stdout)

	app, err := bootstrap.New(ctx, provider, logger)
	if err != nil {
		panic(err)
	}

	handler := lambda.NewHandler(app.Service, app.Auth, app.Auth.Tokens(), logger)

	// Start Lambda
	awslambda.Start(handler.Handle)
}
