/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caiflower/regate/gateway"
	"github.com/caiflower/regate/gateway/config"
	"github.com/caiflower/regate/global"
	"github.com/caiflower/regate/pkg/logger"
	"github.com/caiflower/regate/pkg/tools"
)

type connectionInfo struct {
	Port int `json:"port"`
}

func main() {
	var (
		configFile string
		printInfo  bool
	)
	flag.StringVar(&configFile, "config", "", "where to find the configuration file (default $CONFIG_PATH/regate.yaml)")
	flag.StringVar(&configFile, "c", "", "shorthand for --config")
	flag.BoolVar(&printInfo, "print-info", false, "print connection details to stdout once listening, then close stdout")
	flag.Parse()

	if err := run(configFile, printInfo, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "regate: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, printInfo bool, stdout io.WriteCloser) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err = logger.InitLogger(&c.Logger); err != nil {
		return err
	}
	defer logger.DefaultLogger().Close()

	g, err := gateway.New(c)
	if err != nil {
		return err
	}
	rm := global.DefaultResourceManger
	rm.AddDaemonWithOrder(g, 200)
	if c.MaintenanceEnabled() {
		rm.AddDaemon(gateway.NewMaintenance(g.Root(), c))
	}

	if err = rm.Start(); err != nil {
		return err
	}
	if printInfo {
		if err = writeInfo(stdout, g.Port()); err != nil {
			rm.Shutdown()
			return err
		}
	}
	return rm.Signal()
}

// writeInfo reports the bound port and closes w, so a parent process reading
// it sees EOF once the server is ready.
func writeInfo(w io.WriteCloser, port int) error {
	content, err := tools.Marshal(&connectionInfo{Port: port})
	if err != nil {
		return err
	}
	if _, err = w.Write(content); err != nil {
		return err
	}
	return w.Close()
}
