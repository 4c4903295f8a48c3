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

package extract

import "fmt"

// The system prompts are part of the wire contract with the engine: the JSON
// shapes below are what parseFlight and parseCarShare decode.

const flightSystemPrompt = `You are an expert at extracting flight booking information from emails.

Extract flight booking details from the provided email and return them in the following JSON format:

{
  "confirmation_code": "string",
  "passenger_name": "string",
  "booking_reference": "string (optional)",
  "outbound_segments": [
    {
      "airline": "string",
      "flight_number": "string",
      "departure_airport": {
        "code": "string (3-letter airport code)",
        "name": "string (optional)",
        "city": "string (optional)"
      },
      "arrival_airport": {
        "code": "string (3-letter airport code)",
        "name": "string (optional)",
        "city": "string (optional)"
      },
      "departure_time": "ISO 8601 datetime with timezone",
      "arrival_time": "ISO 8601 datetime with timezone",
      "aircraft_type": "string (optional)",
      "seat_number": "string (optional)"
    }
  ],
  "return_segments": [
    // Same format as outbound_segments, empty array if one-way
  ],
  "booking_date": "ISO 8601 datetime (optional)",
  "total_price": "string with currency (optional)",
  "checkin_url": "string (optional)",
  "checkin_opens": "ISO 8601 datetime (optional)"
}

Important guidelines:
- Always include timezone information in datetime fields (e.g., "2024-01-15T10:30:00+09:00")
- Use 3-letter IATA airport codes (NRT, HND, LAX, etc.)
- Extract passenger name exactly as it appears
- If multiple passengers, use the first passenger's name
- Return null if no valid flight information is found
- Be precise with dates and times, including time zones if available
- For confirmation_code: ONLY use values that appear after "確認番号" or "Confirmation Number" labels in the email. These are typically longer numeric codes (6+ digits). DO NOT use short numbers like "0709" or "0520" which are reservation numbers, not confirmation codes
- For booking_reference: Extract the first reservation number (予約番号) found in the email
- If you cannot find a line with "確認番号" label, return null for confirmation_code
`

const carShareSystemPrompt = `You are an expert at extracting car sharing booking information from emails.

Extract car sharing booking details from the provided email and return them in the following JSON format:

{
  "booking_reference": "string (optional)",
  "confirmation_code": "string (optional)",
  "status": "reserved|changed|cancelled|completed",
  "user_name": "string",
  "start_time": "ISO 8601 datetime with timezone",
  "end_time": "ISO 8601 datetime with timezone",
  "station": {
    "station_name": "string",
    "station_address": "string (optional)",
    "station_code": "string (optional)"
  },
  "car": {
    "car_type": "string (optional)",
    "car_number": "string (optional)",
    "car_name": "string (optional)"
  },
  "booking_date": "ISO 8601 datetime (optional)",
  "total_price": "string with currency (optional)"
}

Important guidelines:
- Always include timezone information in datetime fields (e.g., "2024-01-15T10:30:00+09:00")
- Extract user name exactly as it appears in the email
- For status field, analyze the email SUBJECT LINE FIRST, then email content to determine the booking status:
  * "reserved": Subject contains "予約を受付けました" or "予約開始" or similar reservation confirmation
  * "changed": Subject contains "変更を受付けました" or "変更" or similar modification text
  * "cancelled": Subject contains "キャンセル" or "予約を取り消し" or "取消" or similar cancellation text
  * "completed": Subject contains "利用終了" or "返却" or "利用完了" or similar completion text
  * IMPORTANT: The subject line is the most reliable indicator - prioritize it over email body content
- Return null if no valid car sharing information is found
- Be precise with dates and times, including time zones if available
- Extract station name and address carefully
- Look for car type, model, or license plate information
- For Times Car emails, look for "タイムズカー" related information
- For 三井のカーシェアーズ emails, look for "カレコ" or "三井のカーシェアーズ" related information
`

func flightUserPrompt(subject, body string) string {
	return fmt.Sprintf(`Email Subject: %s

Email Content:
%s

Extract the flight booking information from this email and return it as JSON.`, subject, body)
}

func carShareUserPrompt(subject, provider, body string) string {
	return fmt.Sprintf(`Email Subject: %s
Provider: %s

Email Content:
%s

Extract the car sharing booking information from this email and return it as JSON.`, subject, provider, body)
}
