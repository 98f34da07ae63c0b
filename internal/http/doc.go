// Package http provides the JSON API of the timetable service on a chi router.
//
// The router exposes the following endpoints:
//   - GET /healthz, GET /metrics: liveness and Prometheus exposition.
//   - GET /bookings, POST /bookings, GET|PUT|DELETE /bookings/{id}: weekly
//     bookings exchanging the `bookingDTO` payload defined in booking_handler.go.
//     Writes that overlap an active booking of the same teacher or classroom on
//     the same day answer 409 with error_code SCHEDULE_CONFLICT and the
//     conflicting bookings.
//   - POST /bookings/check: dry-run conflict check for a candidate booking.
//   - POST /bookings/{id}/activate, POST /bookings/{id}/deactivate.
//   - GET /timetable/week, GET /me/timetable: monday to saturday grids of
//     hourly slots between 08:00 and 18:00.
//   - GET|POST /classrooms, /teachers, /subjects and GET|PUT|DELETE on their
//     /{id} paths: catalog management.
//   - PUT /teachers/{id}/attendance/{date}, GET /teachers/{id}/attendance,
//     GET /attendance, GET /me/attendance: teacher attendance.
//
// Authentication happens upstream. The Principal middleware reads the caller
// from the X-Actor-ID and X-Teacher-ID headers.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
