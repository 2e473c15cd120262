package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	productID := flag.Int("product", 1, "product id")
	createProduct := flag.Bool("create-product", true, "create a catalog product before test")
	adminToken := flag.String("admin-token", "dev-admin-token", "admin token for product/stats endpoints")
	statsCheck := flag.Bool("stats", true, "fetch statistics after test")

	// 吞吐测试参数：N 个会话并发埋点
	nSessions := flag.Int("sessions", 200, "distinct sessions")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	if *createProduct {
		// 先建一条目录记录，让缺省 name/price 的事件走目录解析而不是占位值。
		if err := doPOST(client, fmt.Sprintf("%s/api/products", *baseURL), map[string]any{
			"name":  "Load Test Widget",
			"price": 1999,
		}, map[string]string{
			"X-Admin-Token": *adminToken,
		}); err != nil {
			fmt.Println("create product:", err)
		} else {
			fmt.Println("create product ok")
		}
	}

	// 1) 吞吐测试：不同会话并发埋点
	fmt.Printf("start ingest test: product=%d sessions=%d concurrency=%d\n", *productID, *nSessions, *concurrency)
	results := runTrack(client, *baseURL, *productID, *nSessions, *concurrency)
	printSummary("ingest", results)

	// 2) 限流测试：同一个会话重复埋点（更容易触发 429）
	fmt.Println("\nstart rate limit test: same session, 50 requests, concurrency 50")
	sameSession := uuid.New().String()
	results2 := runTrackSameSession(client, *baseURL, *productID, sameSession, 50, 50)
	printSummary("rate_limit", results2)

	if *statsCheck {
		if err := printStats(client, *baseURL, *adminToken); err != nil {
			fmt.Println("stats check err:", err)
		}
	}
}

type trackReq struct {
	SessionID string `json:"session_id"`
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	CartTotal int64  `json:"cart_total"`
}

func runTrack(client *http.Client, baseURL string, productID int, nSessions int, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, nSessions)

	for i := 0; i < nSessions; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := trackReq{
				SessionID: uuid.New().String(),
				ProductID: productID,
				Quantity:  1,
				CartTotal: 1999,
			}
			results[idx] = trackOnce(client, baseURL, req)
		}(i)
	}

	wg.Wait()
	return results
}

func runTrackSameSession(client *http.Client, baseURL string, productID int, sessionID string, total int, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := trackReq{
				SessionID: sessionID,
				ProductID: productID,
				Quantity:  1,
				CartTotal: 1999,
			}
			results[idx] = trackOnce(client, baseURL, req)
		}(i)
	}

	wg.Wait()
	return results
}

func trackOnce(client *http.Client, baseURL string, req any) Result {
	b, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/api/track/cart", baseURL)
	httpReq, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// doPOST 发送 POST 请求（支持附加请求头）。
func doPOST(client *http.Client, url string, body any, headers map[string]string) error {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// printStats 拉取统计汇总，用于压测后核对计数。
func printStats(client *http.Client, baseURL, adminToken string) error {
	url := fmt.Sprintf("%s/api/stats?period=1", baseURL)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Admin-Token", adminToken)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			Summary struct {
				TotalCarts   int64 `json:"total_carts"`
				PendingCarts int64 `json:"pending_carts"`
			} `json:"summary"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	fmt.Printf("stats: total=%d pending=%d\n", out.Data.Summary.TotalCarts, out.Data.Summary.PendingCarts)
	return nil
}
