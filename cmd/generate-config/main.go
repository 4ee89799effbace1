// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/seqvec/pkg/config"
)

// generate-config writes the default configuration as toml.
func main() {
	output := flag.String("o", "", "output file, stdout when empty")
	flag.Parse()

	if err := generate(*output); err != nil {
		fmt.Printf("generate config failed. error:%v \n", err)
		os.Exit(-1)
	}
}

func generate(output string) error {
	if output == "" {
		return writeDefaults(os.Stdout)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := writeDefaults(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeDefaults(w io.Writer) error {
	cfg := config.Config{}
	cfg.SetDefaultValues()
	if _, err := io.WriteString(w, "# seqvec configuration, generated with default values\n\n"); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(cfg)
}
