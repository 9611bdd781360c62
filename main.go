package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"

	"pansearch/api"
	"pansearch/config"
	"pansearch/metrics"
	"pansearch/model"
	"pansearch/plugin"
	// 插件的空导入，触发各插件的init函数完成注册
	_ "pansearch/plugin/jikepan"
	_ "pansearch/plugin/pansearch"
	_ "pansearch/plugin/qupansou"
	"pansearch/service"
	"pansearch/telemetry"
	"pansearch/util"
	jsonutil "pansearch/util/json"
	"pansearch/util/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.WithError(err).Fatal("退出")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "pansearch",
		Usage:  "网盘资源聚合搜索服务",
		Before: initApp,
		Action: serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "启动 HTTP 服务",
				Action: serveCommand,
			},
			{
				Name:   "search",
				Usage:  "执行一次搜索并输出 JSON",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kw", Aliases: []string{"k"}, Usage: "搜索关键词", Required: true},
					&cli.StringFlag{Name: "res", Usage: "结果类型: results, merged_by_type, all", Value: model.ResultTypeMergedByType},
					&cli.StringFlag{Name: "src", Usage: "数据来源: all, tg, plugin", Value: model.SourceTypeAll},
					&cli.StringSliceFlag{Name: "channels", Usage: "频道列表"},
					&cli.StringSliceFlag{Name: "plugins", Usage: "插件列表"},
					&cli.StringSliceFlag{Name: "cloud-types", Usage: "只保留的网盘类型"},
					&cli.BoolFlag{Name: "refresh", Usage: "忽略缓存"},
				},
			},
			{
				Name:   "plugins",
				Usage:  "列出已启用的插件",
				Action: pluginsCommand,
			},
			{
				Name:   "token",
				Usage:  "使用 AUTH_JWT_SECRET 签发访问令牌",
				Action: tokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Usage: "令牌主体", Value: "client"},
					&cli.DurationFlag{Name: "ttl", Usage: "有效期", Value: 24 * time.Hour},
				},
			},
		},
	}
}

// initApp 初始化配置、日志和HTTP客户端
func initApp(c *cli.Context) error {
	config.Init()
	logger.Init(config.AppConfig.LogLevel, config.AppConfig.LogFormat)
	return util.InitHTTPClient(config.AppConfig.ProxyURL)
}

// buildService 注册插件并创建搜索服务
func buildService(cfg *config.Config) *service.SearchService {
	pluginManager := plugin.NewPluginManager()
	pluginManager.RegisterGlobalPluginsWithFilter(cfg.EnabledPlugins)
	cfg.UpdateDefaultConcurrency(len(pluginManager.GetPlugins()))

	var options []service.Option
	if len(cfg.PriorityKeywords) > 0 {
		options = append(options, service.WithRanking(service.NewKeywordRanking(cfg.PriorityKeywords)))
	}

	return service.NewSearchService(cfg.SearchOptions(), service.NewTelegramFetcher("", nil), pluginManager, options...)
}

func serveCommand(c *cli.Context) error {
	cfg := config.AppConfig
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Init(ctx, "pansearch", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	if cfg.MetricsEnabled {
		metrics.Register(prometheus.DefaultRegisterer)
	}

	searchService := buildService(cfg)

	gin.SetMode(gin.ReleaseMode)
	router, err := api.SetupRouter(cfg, searchService)
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(router, "pansearch",
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/api/health" && r.URL.Path != "/metrics"
			}),
		),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	printServiceInfo(cfg, searchService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(netutil.LimitListener(ln, cfg.HTTPMaxConns))
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// printServiceInfo 打印服务信息
func printServiceInfo(cfg *config.Config, searchService *service.SearchService) {
	log := logger.Named("main")

	names := make([]string, 0)
	for _, p := range searchService.RegisteredPlugins() {
		names = append(names, p.Name())
	}

	log.WithFields(map[string]interface{}{
		"addr":          "http://localhost:" + cfg.Port,
		"proxy":         cfg.UseProxy,
		"channels":      cfg.DefaultChannels,
		"plugins":       names,
		"concurrency":   cfg.DefaultConcurrency,
		"cache_enabled": cfg.CacheEnabled,
		"cache_ttl_min": cfg.CacheTTLMinutes,
		"auth":          cfg.AuthEnabled,
		"rate_limit":    cfg.RateLimitRPS,
	}).Info("服务器启动")
}

func searchCommand(c *cli.Context) error {
	searchService := buildService(config.AppConfig)

	resp, err := searchService.Search(c.Context, model.SearchRequest{
		Keyword:      c.String("kw"),
		Channels:     c.StringSlice("channels"),
		ForceRefresh: c.Bool("refresh"),
		ResultType:   c.String("res"),
		SourceType:   c.String("src"),
		Plugins:      c.StringSlice("plugins"),
		CloudTypes:   c.StringSlice("cloud-types"),
	})
	if err != nil {
		return err
	}

	out, err := jsonutil.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func pluginsCommand(c *cli.Context) error {
	pluginManager := plugin.NewPluginManager()
	pluginManager.RegisterGlobalPluginsWithFilter(config.AppConfig.EnabledPlugins)

	for _, p := range pluginManager.GetPlugins() {
		if _, err := fmt.Fprintf(c.App.Writer, "%s\t%d\n", p.Name(), p.Priority()); err != nil {
			return err
		}
	}
	return nil
}

func tokenCommand(c *cli.Context) error {
	auth, err := api.NewTokenAuth(config.AppConfig.AuthJWTSecret)
	if err != nil {
		return err
	}

	token, expiresAt, err := auth.GenerateToken(c.String("subject"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s\nexpires_at: %s\n", token, expiresAt.Format(time.RFC3339))
	return err
}
