package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"coupon_engine/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type options struct {
	baseURL     string
	secret      string
	users       int
	limit       int64
	concurrency int
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&opts.secret, "secret", os.Getenv("JWT_SECRET"), "JWT secret used to sign test tokens")
	flag.IntVar(&opts.users, "users", 2000, "number of concurrent apply requests")
	flag.Int64Var(&opts.limit, "limit", 5, "coupon usage limit")
	flag.IntVar(&opts.concurrency, "concurrency", 500, "max in-flight requests")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	adminToken, _, err := utils.GenerateToken(opts.secret, "stress-admin", utils.RoleAdmin, time.Hour)
	if err != nil {
		return fmt.Errorf("sign admin token: %w", err)
	}

	// 1. 创建优惠券 (管理员操作)
	code := "STRESS-" + uuid.NewString()[:8]
	if err := createCoupon(ctx, opts, adminToken, code); err != nil {
		return err
	}
	fmt.Printf("开始压测：模拟 %d 个用户核销上限为 %d 的优惠券 %s...\n", opts.users, opts.limit, code)

	// 2. 并发核销
	var success, rejected, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	start := time.Now()
	for i := 1; i <= opts.users; i++ {
		userID := fmt.Sprintf("stress-user-%d", i)
		g.Go(func() error {
			token, _, err := utils.GenerateToken(opts.secret, userID, utils.RoleUser, time.Hour)
			if err != nil {
				return err
			}
			resp, err := post(gctx, opts.baseURL+"/coupons/apply", token, map[string]interface{}{
				"orderId":    uuid.NewString(),
				"orderTotal": "100.00",
				"code":       code,
			})
			switch {
			case err != nil:
				failed.Add(1)
			case resp.Code == 0:
				success.Add(1)
			default:
				rejected.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	duration := time.Since(start)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d\n", opts.users)
	fmt.Printf("QPS: %.2f\n", float64(opts.users)/duration.Seconds())
	fmt.Printf("核销成功: %d (预期: %d)\n", success.Load(), min(opts.limit, int64(opts.users)))
	fmt.Printf("业务拒绝: %d\n", rejected.Load())
	fmt.Printf("请求失败: %d\n", failed.Load())
	fmt.Println("--------------------------------------------------")

	// 3. 核对使用记录数
	resp, err := get(ctx, opts.baseURL+"/coupons/"+code, adminToken)
	if err != nil {
		return err
	}
	var detail struct {
		UsedCount int64 `json:"usedCount"`
	}
	if err := json.Unmarshal(resp.Data, &detail); err != nil {
		return fmt.Errorf("decode coupon detail: %w", err)
	}
	fmt.Printf("数据库使用记录: %d\n", detail.UsedCount)
	if detail.UsedCount != success.Load() || detail.UsedCount > opts.limit {
		return fmt.Errorf("usage count %d does not match %d successful redemptions", detail.UsedCount, success.Load())
	}
	return nil
}

func createCoupon(ctx context.Context, opts options, token, code string) error {
	resp, err := post(ctx, opts.baseURL+"/coupons", token, map[string]interface{}{
		"code":       code,
		"type":       "FIXED",
		"value":      "10.00",
		"usageLimit": opts.limit,
		"endDate":    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("create coupon: %d %s", resp.Code, resp.Message)
	}
	return nil
}

func post(ctx context.Context, url, token string, payload interface{}) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, token)
}

func get(ctx context.Context, url, token string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return do(req, token)
}

func do(req *http.Request, token string) (*apiResponse, error) {
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	return &result, nil
}
