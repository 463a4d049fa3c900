// Copyright 2025 madder Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	_ "net/http/pprof"

	"github.com/emicklei/go-restful/v3"
	"github.com/madder-io/madder/base/log"
	"github.com/madder-io/madder/cmd/version"
	"github.com/madder-io/madder/config"
	"github.com/madder-io/madder/logics"
	"github.com/madder-io/madder/server"
	"github.com/madder-io/madder/storage/feedback"
	"github.com/madder-io/madder/storage/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverCommand = &cobra.Command{
	Use:   "madder-server",
	Short: "The madder contextual bandit recommendation server.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		showVersion, _ := cmd.PersistentFlags().GetBool("version")
		if showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}

		// connect model store
		extractor := logics.NewExtractor()
		modelClient, err := model.Open(conf.Database.ModelStore, conf.Database.TablePrefix, model.Schema{
			Dimension: extractor.Dimension(),
			Version:   extractor.Version(),
		})
		if err != nil {
			log.Logger().Fatal("failed to connect model store",
				zap.String("database", log.RedactDBURL(conf.Database.ModelStore)), zap.Error(err))
		}
		if conf.Database.ModelCacheTTL > 0 {
			modelClient = model.NewCached(modelClient, conf.Database.ModelCacheTTL)
		}

		// connect interaction log
		logClient := feedback.Database(feedback.NoDatabase{})
		if conf.Database.LogStore != "" {
			if logClient, err = feedback.Open(conf.Database.LogStore, conf.Database.TablePrefix); err != nil {
				log.Logger().Fatal("failed to connect interaction log",
					zap.String("database", log.RedactDBURL(conf.Database.LogStore)), zap.Error(err))
			}
			if err = logClient.Init(); err != nil {
				log.Logger().Fatal("failed to initialize interaction log", zap.Error(err))
			}
		}

		recommender, err := logics.NewRecommender(conf, modelClient, logClient)
		if err != nil {
			log.Logger().Fatal("failed to create recommender", zap.Error(err))
		}

		s := &server.RestServer{
			Config:      conf,
			Recommender: recommender,
			ModelClient: modelClient,
			LogClient:   logClient,
			HttpHost:    conf.Server.HttpHost,
			HttpPort:    conf.Server.HttpPort,
			WebService:  new(restful.WebService),
		}
		s.StartHttpServer()
	},
}

func init() {
	serverCommand.PersistentFlags().BoolP("version", "v", false, "madder version")
	serverCommand.PersistentFlags().StringP("config", "c", "config.toml", "configuration file path")
	serverCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(serverCommand.PersistentFlags())
}

func main() {
	if err := serverCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
