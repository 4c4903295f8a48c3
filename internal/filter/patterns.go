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

// All patterns are compiled case-insensitive.

// Subjects that are never booking notifications: campaigns, newsletters,
// surveys and account or system notices.
var nonBookingSubjectPatterns = []string{
	`キャンペーン`,
	`メルマガ`,
	`ニュースレター`,
	`アンケート`,
	`会員情報`,
	`パスワード`,
	`ログイン`,
	`メールアドレス.*変更`,
	`(ANA|JAL)からのお知らせ`,
	`newsletter`,
	`campaign`,
	`survey`,
	`password`,
	`\bsign[- ]?in\b`,
	`unsubscribe`,
}

// Subjects that read like a booking notification.
var bookingSubjectPatterns = []string{
	`確認番号`,
	`予約番号`,
	`ご予約.*確認`,
	`予約.*受付`,
	`予約.*(完了|確定)`,
	`搭乗券`,
	`eチケット`,
	`e-?ticket`,
	`チェックイン`,
	`check-?in`,
	`利用.*開始`,
	`利用.*終了`,
	`返却`,
	`キャンセル.*受付`,
	`変更.*受付`,
	`(ANA|JAL|タイムズ|三井のカーシェアーズ|カレコ).*(予約|確認)`,
	`confirmation`,
	`reservation`,
	`itinerary`,
}

var promotionalSubjectPatterns = []string{
	// campaigns
	`キャンペーン`,
	`プレゼント`,
	`抽選`,
	`割引`,
	`セール`,
	`特典`,
	`お得`,
	`限定`,
	`応募`,
	`マイル.*キャンペーン`,
	`ポイント.*キャンペーン`,
	// newsletters
	`メルマガ`,
	`ニュースレター`,
	`お知らせ`,
	`新着`,
	`情報配信`,
	// airlines
	`ANA.*キャンペーン`,
	`ANA.*プレゼント`,
	`ANA.*マイル`,
	`ANAからのお知らせ`,
	`JAL.*キャンペーン`,
	`JAL.*プレゼント`,
	`JAL.*マイル`,
	`JALからのお知らせ`,
	// car sharing
	`タイムズカー.*キャンペーン`,
	`カレコ.*キャンペーン`,
	`三井のカーシェアーズ.*キャンペーン`,
	`カーシェア.*お得`,
	// urgency
	`今すぐ`,
	`急いで`,
	`見逃し`,
	`最後のチャンス`,
	`期間限定`,
	`無料`,
	`プレミアム`,
}

var promotionalBodyPatterns = []string{
	`クリックして.*キャンペーン`,
	`詳しくはこちら.*キャンペーン`,
	`応募.*こちら`,
	`配信停止`,
	`メール配信.*停止`,
	`購読解除`,
	`キャンペーン.*情報`,
	`詳しくはこちら`,
	`今すぐ.*クリック`,
	`(キャンペーン|プレゼント|抽選).*?(キャンペーン|プレゼント|抽選)`,
}

// Confirmation language. A hit in the subject, or two in the body, overrides
// every promotional signal.
var bookingConfirmationPatterns = []string{
	// flights
	`予約.*受付.*ました`,
	`ご予約.*確認`,
	`搭乗券`,
	`フライト.*確認`,
	`航空券`,
	`確認番号`,
	`予約番号`,
	`チェックイン`,
	// car sharing
	`利用.*開始`,
	`利用.*終了`,
	`予約.*開始`,
	`返却.*完了`,
	`キャンセル.*受付`,
	`変更.*受付`,
}
