// package main serves the joyce:buzzer:piezo model as a modular
// resource.
package main

import (
	"context"

	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"
	"go.viam.com/utils"

	"github.com/loopDelicious/viam-piezo/internal/piezo"
)

func main() {
	utils.ContextualMain(mainWithArgs, module.NewLoggerFromArgs("viam-piezo"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	piezoModule, err := module.NewModuleFromArgs(ctx, logger)
	if err != nil {
		return err
	}

	if err = piezoModule.AddModelFromRegistry(ctx, generic.API, piezo.Model); err != nil {
		return err
	}

	err = piezoModule.Start(ctx)
	defer piezoModule.Close(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
