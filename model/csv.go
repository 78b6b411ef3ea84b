package model

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pkg/errors"
)

var barCSVHeader = []string{
	"date", "code", "open", "high", "low", "close",
	"volume", "amount", "pct_change", "change",
}

var barCSVHeaderAdjusted = append(append([]string{}, barCSVHeader...),
	"open_raw", "high_raw", "low_raw", "close_raw", "price_type")

//ToCSV serializes the series; forward-adjusted series carry the raw mirrors
//and the price_type column so round trips preserve provenance.
func (s *Bars) ToCSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	adjusted := s.PriceType == PriceTypeForwardAdjusted
	header := barCSVHeader
	if adjusted {
		header = barCSVHeaderAdjusted
	}
	if e := w.Write(header); e != nil {
		return nil, errors.WithStack(e)
	}
	for _, r := range s.Rows {
		rec := []string{
			r.Date, r.Code,
			ffmt(r.Open), ffmt(r.High), ffmt(r.Low), ffmt(r.Close),
			ffmt(r.Volume), ffmt(r.Amount), ffmt(r.PctChange), ffmt(r.Change),
		}
		if adjusted {
			rec = append(rec,
				ffmt(r.OpenRaw), ffmt(r.HighRaw), ffmt(r.LowRaw), ffmt(r.CloseRaw),
				s.PriceType)
		}
		if e := w.Write(rec); e != nil {
			return nil, errors.WithStack(e)
		}
	}
	w.Flush()
	return buf.Bytes(), errors.WithStack(w.Error())
}

//BarsFromCSV parses a series previously produced by ToCSV.
func BarsFromCSV(data []byte) (*Bars, error) {
	r := csv.NewReader(bytes.NewReader(data))
	recs, e := r.ReadAll()
	if e != nil {
		return nil, errors.Wrap(e, "malformed cached csv")
	}
	if len(recs) == 0 {
		return &Bars{PriceType: PriceTypeRaw}, nil
	}
	head := map[string]int{}
	for i, h := range recs[0] {
		head[h] = i
	}
	cell := func(rec []string, name string) string {
		if i, ok := head[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	s := &Bars{PriceType: PriceTypeRaw}
	for _, rec := range recs[1:] {
		b := &PriceBar{
			Date:      cell(rec, "date"),
			Code:      cell(rec, "code"),
			Open:      pf(cell(rec, "open")),
			High:      pf(cell(rec, "high")),
			Low:       pf(cell(rec, "low")),
			Close:     pf(cell(rec, "close")),
			Volume:    pf(cell(rec, "volume")),
			Amount:    pf(cell(rec, "amount")),
			PctChange: pf(cell(rec, "pct_change")),
			Change:    pf(cell(rec, "change")),
		}
		if pt := cell(rec, "price_type"); pt != "" {
			s.PriceType = pt
			b.OpenRaw = pf(cell(rec, "open_raw"))
			b.HighRaw = pf(cell(rec, "high_raw"))
			b.LowRaw = pf(cell(rec, "low_raw"))
			b.CloseRaw = pf(cell(rec, "close_raw"))
		}
		if s.Code == "" {
			s.Code = b.Code
		}
		s.Rows = append(s.Rows, b)
	}
	return s, nil
}

func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pf(s string) float64 {
	v, e := strconv.ParseFloat(s, 64)
	if e != nil {
		return 0
	}
	return v
}
