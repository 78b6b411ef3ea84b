package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

//Proxy represents a forwarding proxy server.
type Proxy struct {
	Host string
	Port string
	Type string
}

//HTTPGet initiates an HTTP get request and returns its response.
func HTTPGet(link string, headers map[string]string, px *Proxy) (res *http.Response, e error) {
	req, e := http.NewRequest(http.MethodGet, link, nil)
	if e != nil {
		return nil, errors.Wrapf(e, "unable to create http request for %s", link)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,"+
		"application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7,zh-TW;q=0.6")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "close")
	if host := hostOf(link); host != "" {
		req.Header.Set("Host", host)
	}
	req.Header.Set("Pragma", "no-cache")
	for k, hv := range headers {
		req.Header.Set(k, hv)
	}
	if len(req.Header.Get("User-Agent")) == 0 {
		req.Header.Set("User-Agent", conf.Args.Network.DefaultUserAgent)
	}

	client, e := newClient(px)
	if e != nil {
		return nil, e
	}
	res, e = client.Do(req)
	if e != nil {
		return nil, errors.Wrapf(e, "http get %s failed", link)
	}
	return res, nil
}

//HTTPGetBody fetches a URL and returns the response body, failing on non-2xx
//status codes.
func HTTPGetBody(link string, headers map[string]string) ([]byte, error) {
	res, e := HTTPGet(link, headers, MasterProxy())
	if e != nil {
		return nil, e
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, errors.Errorf("http get %s returned status %d", link, res.StatusCode)
	}
	data, e := io.ReadAll(res.Body)
	if e != nil {
		return nil, errors.Wrapf(e, "failed to read response body from %s", link)
	}
	return data, nil
}

//HTTPPostJSON posts a JSON payload and returns the response body.
func HTTPPostJSON(link string, payload interface{}) ([]byte, error) {
	body, e := json.Marshal(payload)
	if e != nil {
		return nil, errors.Wrap(e, "failed to marshal request payload")
	}
	req, e := http.NewRequest(http.MethodPost, link, bytes.NewReader(body))
	if e != nil {
		return nil, errors.Wrapf(e, "unable to create http request for %s", link)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", conf.Args.Network.DefaultUserAgent)

	client, e := newClient(MasterProxy())
	if e != nil {
		return nil, e
	}
	res, e := client.Do(req)
	if e != nil {
		return nil, errors.Wrapf(e, "http post %s failed", link)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, errors.Errorf("http post %s returned status %d", link, res.StatusCode)
	}
	data, e := io.ReadAll(res.Body)
	if e != nil {
		return nil, errors.Wrapf(e, "failed to read response body from %s", link)
	}
	return data, nil
}

//MasterProxy returns the configured master proxy, or nil for direct access.
func MasterProxy() *Proxy {
	addr := conf.Args.Network.MasterProxyAddr
	if addr == "" {
		return nil
	}
	ss := strings.Split(addr, ":")
	if len(ss) != 2 {
		return nil
	}
	return &Proxy{Host: ss[0], Port: ss[1], Type: "socks5"}
}

func newClient(px *Proxy) (*http.Client, error) {
	timeout := time.Second * time.Duration(conf.Args.Network.HTTPTimeout)
	if px == nil {
		return &http.Client{Timeout: timeout}, nil
	}
	switch px.Type {
	case "socks5":
		dialer, e := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%s", px.Host, px.Port), nil, proxy.Direct)
		if e != nil {
			return nil, errors.Wrap(e, "can't create socks5 proxy dialer")
		}
		return &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Dial: dialer.Dial},
		}, nil
	case "http":
		proxyURL, e := url.Parse(fmt.Sprintf("http://%s:%s", px.Host, px.Port))
		if e != nil {
			return nil, errors.Wrap(e, "invalid http proxy address")
		}
		return &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}, nil
	}
	return nil, errors.Errorf("unsupported proxy type: %s", px.Type)
}

var hostPattern = regexp.MustCompile(`//([^/]*)/`)

func hostOf(link string) string {
	r := hostPattern.FindStringSubmatch(link)
	if len(r) > 0 {
		return r[len(r)-1]
	}
	return ""
}
