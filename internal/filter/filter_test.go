// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLikelyBooking(t *testing.T) {
	f := New()

	tests := []struct {
		subject string
		want    bool
	}{
		{"ANAキャンペーン開始", false},
		{"JALからのお知らせ", false},
		{"【メルマガ】夏の旅行特集", false},
		{"Reset your password", false},
		{"ANA ご予約確認 [確認番号: 887525617]", true},
		{"【タイムズカー】予約を受付けました", true},
		{"ご予約の変更を受付けました", true},
		{"Your e-ticket receipt", true},
		{"Designing your next trip", true},
		{"Hello", true},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsLikelyBooking(tt.subject))
		})
	}
}

func TestIsPromotional(t *testing.T) {
	f := New()

	tests := []struct {
		name    string
		subject string
		body    string
		want    bool
	}{
		{
			name:    "two subject patterns",
			subject: "期間限定！無料プレゼント",
			want:    true,
		},
		{
			name:    "subject confirmation beats body promotion",
			subject: "ご予約を受付けました",
			body:    "キャンペーン情報はこちら",
			want:    false,
		},
		{
			name:    "subject confirmation beats subject promotion",
			subject: "確認番号のご案内 期間限定 無料",
			want:    false,
		},
		{
			name:    "one subject and two body patterns",
			subject: "夏セール開催",
			body:    "詳しくはこちら\n配信停止はこちらから",
			want:    true,
		},
		{
			name:    "one subject and one body pattern",
			subject: "夏セール開催",
			body:    "詳しくはこちら",
			want:    false,
		},
		{
			name:    "three body patterns",
			subject: "定期便",
			body:    "詳しくはこちら\n配信停止\n購読解除",
			want:    true,
		},
		{
			name:    "two body patterns only",
			subject: "定期便",
			body:    "詳しくはこちら\n配信停止",
			want:    false,
		},
		{
			name:    "two body confirmations beat everything",
			subject: "期間限定 無料",
			body:    "確認番号: 887525617\n予約番号: 0709\n詳しくはこちら\n配信停止\n購読解除",
			want:    false,
		},
		{
			name:    "single body confirmation does not override",
			subject: "期間限定 無料",
			body:    "確認番号: 887525617",
			want:    true,
		},
		{
			name:    "plain booking",
			subject: "ANA ご予約確認 [確認番号: 887525617]",
			body:    "ご搭乗ありがとうございます",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsPromotional(tt.subject, tt.body))
		})
	}
}

func TestClassify(t *testing.T) {
	f := New()

	c := f.Classify("ANAキャンペーン開始", "応募はこちら")
	assert.False(t, c.LikelyBooking)

	c = f.Classify("ANA ご予約確認 [確認番号: 887525617]", "")
	assert.True(t, c.LikelyBooking)
	assert.False(t, c.Promotional)
}
