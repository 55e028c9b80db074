package service

// AdvanceArc продвигает курсор арки после полностью обработанного выбора.
//
// nextIndex никогда не выходит за последний шаг; reachedEnd истинно тогда и
// только тогда, когда арка непуста и выбор закрыл ее последний шаг.
//
// totalSteps == 0 - осознанная политика, не ошибка конфигурации: тип истории
// без объявленной арки считается open-ended и завершается исключительно по
// сигналу генератора (isStoryComplete), поэтому reachedEnd здесь не наступает
// никогда.
func AdvanceArc(currentIndex, totalSteps int) (nextIndex int, reachedEnd bool) {
	if totalSteps <= 0 {
		return currentIndex, false
	}
	nextIndex = currentIndex + 1
	if nextIndex > totalSteps-1 {
		nextIndex = totalSteps - 1
	}
	reachedEnd = currentIndex+1 >= totalSteps
	return nextIndex, reachedEnd
}
