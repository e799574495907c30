package qualification

import "time"

func (svc *Service) SetNowFunc(f func() time.Time) {
	svc.nowFunc = f
}
