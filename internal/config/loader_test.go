package config_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/icnasac/icna-events/internal/config"
	"github.com/icnasac/icna-events/internal/scraper"
	"github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	convey.Convey("Given the configuration loader", t, func() {
		clearConfigEnvVars()

		convey.Convey("When loading config with no file, environment or overrides", func() {
			cfg, err := config.Load("", nil)

			convey.Convey("Then it should return the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, scraper.DefaultBaseURL)
				convey.So(cfg.Output, convey.ShouldEqual, "icna_events.ics")
				convey.So(cfg.MaxPages, convey.ShouldEqual, 5)
				convey.So(cfg.Concurrency, convey.ShouldEqual, 1)
				convey.So(cfg.Pager, convey.ShouldEqual, scraper.PagerPath)
				convey.So(cfg.Timezone, convey.ShouldEqual, "America/Los_Angeles")
				convey.So(cfg.DefaultDuration, convey.ShouldEqual, 2*time.Hour)
				convey.So(cfg.Rules, convey.ShouldResemble, scraper.ICNASacramento)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			yamlContent := `
base_url: "https://example.org/events/"
max_pages: 3
page_timeout: 45s
pager: query
page_param: p
rules:
  item: "article.event"
  title:
    selector: "h2"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(tmpFile, nil)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "https://example.org/events/")
				convey.So(cfg.MaxPages, convey.ShouldEqual, 3)
				convey.So(cfg.PageTimeout, convey.ShouldEqual, 45*time.Second)
				convey.So(cfg.ScraperOptions().Pager, convey.ShouldResemble, scraper.Pager{Style: scraper.PagerQuery, Param: "p"})
				convey.So(cfg.Rules.Item, convey.ShouldEqual, "article.event")
				convey.So(cfg.Rules.Title.Selector, convey.ShouldEqual, "h2")
			})

			convey.Convey("Then rule fields missing from the file should keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Rules.Container, convey.ShouldEqual, scraper.ICNASacramento.Container)
				convey.So(cfg.Rules.Link, convey.ShouldResemble, scraper.ICNASacramento.Link)
			})
		})

		convey.Convey("When the file is named by ICNA_EVENTS_CONFIG", func() {
			tmpFile := createTempConfigFile("output: /tmp/calendar.ics\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ICNA_EVENTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load("", nil)

			convey.Convey("Then it should be loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Output, convey.ShouldEqual, "/tmp/calendar.ics")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
max_pages: 3
concurrency: 2
log_level: debug
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ICNA_EVENTS_MAX_PAGES", "8")
			_ = os.Setenv("ICNA_EVENTS_DEFAULT_DURATION", "90m")
			_ = os.Setenv("ICNA_EVENTS_RULES__LOCATION__SELECTOR", ".venue")
			defer clearConfigEnvVars()

			cfg, err := config.Load(tmpFile, nil)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxPages, convey.ShouldEqual, 8)                     // Overridden by env
				convey.So(cfg.Concurrency, convey.ShouldEqual, 2)                  // From file
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")               // From file
				convey.So(cfg.DefaultDuration, convey.ShouldEqual, 90*time.Minute) // From env
				convey.So(cfg.Rules.Location.Selector, convey.ShouldEqual, ".venue")
			})
		})

		convey.Convey("When overrides are given on top of the environment", func() {
			_ = os.Setenv("ICNA_EVENTS_MAX_PAGES", "8")
			_ = os.Setenv("ICNA_EVENTS_OUTPUT", "env.ics")
			defer clearConfigEnvVars()

			cfg, err := config.Load("", map[string]any{
				"max_pages": 2,
				"base_url":  "http://localhost:8080/events/",
			})

			convey.Convey("Then overrides should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxPages, convey.ShouldEqual, 2)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:8080/events/")
				convey.So(cfg.Output, convey.ShouldEqual, "env.ics")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(tmpFile, nil)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.Load("/non/existent/file.yaml", nil)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the environment holds invalid values", func() {
			_ = os.Setenv("ICNA_EVENTS_MAX_PAGES", "0")
			_ = os.Setenv("ICNA_EVENTS_PAGER", "infinite")
			_ = os.Setenv("ICNA_EVENTS_TIMEZONE", "Mars/Olympus_Mons")
			defer clearConfigEnvVars()

			cfg, err := config.Load("", nil)

			convey.Convey("Then every problem should be reported", func() {
				convey.So(cfg, convey.ShouldBeNil)
				var verrs config.ValidationErrors
				convey.So(errors.As(err, &verrs), convey.ShouldBeTrue)
				convey.So(len(verrs), convey.ShouldEqual, 3)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_pages")
				convey.So(err.Error(), convey.ShouldContainSubstring, "pager")
				convey.So(err.Error(), convey.ShouldContainSubstring, "timezone")
			})
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.Default()

		convey.Convey("It should be valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the base URL is relative", func() {
			cfg.BaseURL = "/up-coming-events/"

			convey.Convey("Then base_url should be rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldStartWith, "base_url:")
			})
		})

		convey.Convey("When the query pager has no parameter name", func() {
			cfg.Pager = scraper.PagerQuery
			cfg.PageParam = ""

			convey.Convey("Then page_param should be rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "page_param")
			})
		})

		convey.Convey("When retry intervals are inverted", func() {
			cfg.RetryInitialInterval = 10 * time.Second
			cfg.RetryMaxInterval = time.Second

			convey.Convey("Then retry_max_interval should be rejected", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "retry_max_interval")
			})
		})

		convey.Convey("When a selector does not compile", func() {
			cfg.Rules.Title.Selector = "h3[["
			cfg.Rules.Item = ""

			convey.Convey("Then both rule problems should be listed", func() {
				err := cfg.Validate()
				var verrs config.ValidationErrors
				convey.So(errors.As(err, &verrs), convey.ShouldBeTrue)
				convey.So(len(verrs), convey.ShouldEqual, 2)
				convey.So(verrs[0].Field, convey.ShouldEqual, "rules.item")
				convey.So(verrs[1].Field, convey.ShouldEqual, "rules.title.selector")
				convey.So(err.Error(), convey.ShouldStartWith, "2 validation errors:")
			})
		})

		convey.Convey("When the log level is unknown", func() {
			cfg.LogLevel = "chatty"

			convey.Convey("Then log_level should be rejected", func() {
				convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "log_level")
			})
		})
	})
}

func TestCalendarOptions(t *testing.T) {
	convey.Convey("Given a configuration with a custom calendar name", t, func() {
		cfg := config.Default()
		cfg.CalendarName = "Sacramento Community"
		cfg.UIDDomain = "example.org"

		opts := cfg.CalendarOptions()

		convey.Convey("Then the serializer options should carry it", func() {
			convey.So(opts.Name, convey.ShouldEqual, "Sacramento Community")
			convey.So(opts.UIDDomain, convey.ShouldEqual, "example.org")
			convey.So(opts.Timezone, convey.ShouldEqual, "America/Los_Angeles")
			convey.So(opts.Now.IsZero(), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "icna-events-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
